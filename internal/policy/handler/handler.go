package handler

import (
	"context"
	"net/http"
	"time"

	"crm_rotation_backend/internal/policy/repository"
	"crm_rotation_backend/internal/policy/transport"
	"crm_rotation_backend/platform/httpkit"
	"crm_rotation_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Service defines the policy operations needed by the handler.
// This is a consumer-driven interface - only what the HTTP layer needs.
type Service interface {
	ListSettings(ctx context.Context) ([]repository.Setting, error)
	UpdateSetting(ctx context.Context, key, value string) (repository.Setting, error)
	ListRules(ctx context.Context) ([]repository.StatusRotationRule, error)
	UpsertRule(ctx context.Context, rule repository.StatusRotationRule) error
}

// Handler handles administrative requests for engine settings and rotation
// rules.
type Handler struct {
	svc Service
	val *validator.Validator
}

// New creates a new policy handler.
func New(svc Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the policy admin routes.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/settings", h.ListSettings)
	admin.PUT("/settings/:key", h.UpdateSetting)
	admin.GET("/rotation-rules", h.ListRules)
	admin.PUT("/rotation-rules", h.UpsertRule)
}

// ListSettings returns all engine settings.
// GET /api/v1/admin/settings
func (h *Handler) ListSettings(c *gin.Context) {
	settings, err := h.svc.ListSettings(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSettingList(settings))
}

// UpdateSetting changes one setting value.
// PUT /api/v1/admin/settings/:key
func (h *Handler) UpdateSetting(c *gin.Context) {
	var req transport.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	updated, err := h.svc.UpdateSetting(c.Request.Context(), c.Param("key"), req.Value)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSettingResponse(updated))
}

// ListRules returns the status rotation rule table.
// GET /api/v1/admin/rotation-rules
func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.svc.ListRules(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.RuleResponse, 0, len(rules))
	for _, r := range rules {
		items = append(items, transport.RuleResponse{
			StatusID:        r.StatusID,
			IntervalMinutes: r.IntervalMinutes,
			MaxAgeMinutes:   r.MaxAgeMinutes,
			MaxAssignments:  r.MaxAssignments,
			Enabled:         r.Enabled,
		})
	}
	httpkit.OK(c, transport.RuleListResponse{Items: items, Total: len(items)})
}

// UpsertRule inserts or replaces one status rotation rule.
// PUT /api/v1/admin/rotation-rules
func (h *Handler) UpsertRule(c *gin.Context) {
	var req transport.UpsertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	err := h.svc.UpsertRule(c.Request.Context(), repository.StatusRotationRule{
		StatusID:        req.StatusID,
		IntervalMinutes: req.IntervalMinutes,
		MaxAgeMinutes:   req.MaxAgeMinutes,
		MaxAssignments:  req.MaxAssignments,
		Enabled:         req.Enabled,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "updated"})
}

func toSettingResponse(s repository.Setting) transport.SettingResponse {
	return transport.SettingResponse{
		Key:       s.Key,
		Value:     s.Value,
		ValueType: s.ValueType,
		Category:  s.Category,
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

func toSettingList(settings []repository.Setting) transport.SettingListResponse {
	items := make([]transport.SettingResponse, 0, len(settings))
	for _, s := range settings {
		items = append(items, toSettingResponse(s))
	}
	return transport.SettingListResponse{Items: items, Total: len(items)}
}
