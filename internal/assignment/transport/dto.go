package transport

import "github.com/google/uuid"

// AssignResponse reports the outcome of a manual assignment trigger.
type AssignResponse struct {
	Outcome      string     `json:"outcome"`
	AgentID      *uuid.UUID `json:"agentId,omitempty"`
	AssignmentID *uuid.UUID `json:"assignmentId,omitempty"`
}
