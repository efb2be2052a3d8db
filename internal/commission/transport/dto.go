package transport

import "github.com/google/uuid"

// SlabResponse is one commission bracket.
type SlabResponse struct {
	ID         int     `json:"id"`
	Tier       *int    `json:"tier,omitempty"`
	SlabFrom   int64   `json:"slabFrom"`
	SlabTo     *int64  `json:"slabTo,omitempty"`
	Percentage float64 `json:"percentage"`
}

// SlabListResponse wraps slabs.
type SlabListResponse struct {
	Items []SlabResponse `json:"items"`
	Total int            `json:"total"`
}

// ConversionResponse is one recorded deal close.
type ConversionResponse struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"leadId"`
	AgentID    uuid.UUID `json:"agentId"`
	DealValue  int64     `json:"dealValue"`
	Percentage float64   `json:"percentage"`
	CreatedAt  string    `json:"createdAt"`
}

// ConversionListResponse wraps conversions.
type ConversionListResponse struct {
	Items []ConversionResponse `json:"items"`
	Total int                  `json:"total"`
}
