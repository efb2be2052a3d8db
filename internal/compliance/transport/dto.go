package transport

// AddEntryRequest puts a phone on the DND registry.
type AddEntryRequest struct {
	Phone  string `json:"phone" validate:"required,min=6,max=20"`
	Reason string `json:"reason" validate:"required,min=1,max=200"`
}

// EntryResponse is one registry row.
type EntryResponse struct {
	Phone     string `json:"phone"`
	Reason    string `json:"reason"`
	AddedBy   string `json:"addedBy"`
	CreatedAt string `json:"createdAt"`
}

// ListResponse wraps registry entries.
type ListResponse struct {
	Items []EntryResponse `json:"items"`
	Total int             `json:"total"`
}
