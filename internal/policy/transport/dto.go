package transport

// UpdateSettingRequest contains the new value for one engine setting.
type UpdateSettingRequest struct {
	Value string `json:"value" validate:"required,max=200"`
}

// SettingResponse represents one engine setting in API responses.
type SettingResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	ValueType string `json:"valueType"`
	Category  string `json:"category"`
	UpdatedAt string `json:"updatedAt"`
}

// SettingListResponse wraps the full settings list.
type SettingListResponse struct {
	Items []SettingResponse `json:"items"`
	Total int               `json:"total"`
}

// UpsertRuleRequest contains one status rotation rule.
type UpsertRuleRequest struct {
	StatusID        int  `json:"statusId" validate:"required,min=1"`
	IntervalMinutes int  `json:"intervalMinutes" validate:"min=0"`
	MaxAgeMinutes   int  `json:"maxAgeMinutes" validate:"min=0"`
	MaxAssignments  int  `json:"maxAssignments" validate:"min=0"`
	Enabled         bool `json:"enabled"`
}

// RuleResponse represents one status rotation rule in API responses.
type RuleResponse struct {
	StatusID        int  `json:"statusId"`
	IntervalMinutes int  `json:"intervalMinutes"`
	MaxAgeMinutes   int  `json:"maxAgeMinutes"`
	MaxAssignments  int  `json:"maxAssignments"`
	Enabled         bool `json:"enabled"`
}

// RuleListResponse wraps the rotation rule table.
type RuleListResponse struct {
	Items []RuleResponse `json:"items"`
	Total int            `json:"total"`
}
