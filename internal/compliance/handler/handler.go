// Package handler exposes DND registry admin endpoints.
package handler

import (
	"context"
	"strconv"
	"time"

	"crm_rotation_backend/internal/compliance/repository"
	"crm_rotation_backend/internal/compliance/transport"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/httpkit"
	"crm_rotation_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Service defines the registry operations consumed by HTTP transport.
type Service interface {
	Add(ctx context.Context, phone, reason, actor string) (repository.Entry, error)
	Remove(ctx context.Context, phone string) error
	List(ctx context.Context, limit int) ([]repository.Entry, error)
}

// Handler handles DND admin requests.
type Handler struct {
	svc Service
	val *validator.Validator
}

// New creates a new DND handler.
func New(svc Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts registry endpoints on the admin group.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	dnd := admin.Group("/dnd")
	dnd.GET("", h.list)
	dnd.POST("", h.add)
	dnd.DELETE("/:phone", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))

	entries, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	items := make([]transport.EntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toResponse(e))
	}
	httpkit.OK(c, transport.ListResponse{Items: items, Total: len(items)})
}

func (h *Handler) add(c *gin.Context) {
	var req transport.AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	actor := ""
	if id, ok := httpkit.UserID(c); ok {
		actor = id.String()
	}

	entry, err := h.svc.Add(c.Request.Context(), req.Phone, req.Reason, actor)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, toResponse(entry))
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.Param("phone")); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"status": "removed"})
}

func toResponse(e repository.Entry) transport.EntryResponse {
	return transport.EntryResponse{
		Phone:     e.Phone,
		Reason:    e.Reason,
		AddedBy:   e.AddedBy,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}
