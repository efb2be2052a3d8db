package transport

import "github.com/google/uuid"

// ScheduleEventRequest books a call or meeting for a lead.
type ScheduleEventRequest struct {
	EventType   string `json:"eventType" validate:"required,oneof=call meeting"`
	ScheduledAt string `json:"scheduledAt" validate:"required"`
}

// EventResponse is one scheduled event.
type EventResponse struct {
	ID           uuid.UUID `json:"id"`
	LeadID       uuid.UUID `json:"leadId"`
	AgentID      uuid.UUID `json:"agentId"`
	EventType    string    `json:"eventType"`
	ScheduledAt  string    `json:"scheduledAt"`
	ReminderSent bool      `json:"reminderSent"`
}

// EventListResponse wraps scheduled events.
type EventListResponse struct {
	Items []EventResponse `json:"items"`
	Total int             `json:"total"`
}
