package transport

import "github.com/google/uuid"

// CreateLeadRequest contains data for lead intake.
type CreateLeadRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=200"`
	Phone     string  `json:"phone" validate:"required,min=6,max=20"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Source    string  `json:"source" validate:"required,min=1,max=100"`
	SubSource *string `json:"subSource,omitempty" validate:"omitempty,max=100"`
	Territory *string `json:"territory,omitempty" validate:"omitempty,max=100"`
}

// ChangeStatusRequest moves a lead to a new status/sub-status pair.
// DealValue is required when moving to Deal Won.
type ChangeStatusRequest struct {
	StatusID  int     `json:"statusId" validate:"required,min=1"`
	SubStatus *string `json:"subStatus,omitempty" validate:"omitempty,max=100"`
	DealValue *int64  `json:"dealValue,omitempty" validate:"omitempty,min=1"`
}

// LeadResponse represents a lead in API responses.
type LeadResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone"`
	Email              *string   `json:"email,omitempty"`
	Source             string    `json:"source"`
	SubSource          *string   `json:"subSource,omitempty"`
	Territory          *string   `json:"territory,omitempty"`
	StatusID           int       `json:"statusId"`
	Status             string    `json:"status"`
	SubStatus          *string   `json:"subStatus,omitempty"`
	DealValue          *int64    `json:"dealValue,omitempty"`
	AssignmentAttempts int       `json:"assignmentAttempts"`
	IsFresh            bool      `json:"isFresh"`
	Contactable        bool      `json:"contactable"`
	Queued             bool      `json:"queued"`
	CreatedAt          string    `json:"createdAt"`
	LastActivityAt     string    `json:"lastActivityAt"`
}

// LeadListResponse wraps a list of leads.
type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}
