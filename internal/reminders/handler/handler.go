// Package handler exposes scheduled-event endpoints.
package handler

import (
	"context"
	"strconv"
	"time"

	"crm_rotation_backend/internal/reminders/repository"
	"crm_rotation_backend/internal/reminders/transport"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/httpkit"
	"crm_rotation_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Service defines the scheduling operations consumed by HTTP transport.
type Service interface {
	Schedule(ctx context.Context, leadID, agentID uuid.UUID, eventType string, at time.Time) (repository.ScheduledEvent, error)
	ListUpcoming(ctx context.Context, leadID uuid.UUID, limit int) ([]repository.ScheduledEvent, error)
}

// Handler handles scheduled-event requests.
type Handler struct {
	svc Service
	val *validator.Validator
}

// New creates a new reminders handler.
func New(svc Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts event endpoints on the authenticated group.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	leads := protected.Group("/leads")
	leads.POST("/:id/events", h.schedule)
	leads.GET("/:id/events", h.listUpcoming)
}

func (h *Handler) schedule(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	agentID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.HandleError(c, apperr.Unauthorized("missing identity"))
		return
	}

	var req transport.ScheduleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	at, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		httpkit.HandleError(c, apperr.Validation("scheduledAt must be RFC 3339"))
		return
	}

	event, err := h.svc.Schedule(c.Request.Context(), leadID, agentID, req.EventType, at)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, toResponse(event))
}

func (h *Handler) listUpcoming(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, err := h.svc.ListUpcoming(c.Request.Context(), leadID, limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	items := make([]transport.EventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, toResponse(e))
	}
	httpkit.OK(c, transport.EventListResponse{Items: items, Total: len(items)})
}

func toResponse(e repository.ScheduledEvent) transport.EventResponse {
	return transport.EventResponse{
		ID:           e.ID,
		LeadID:       e.LeadID,
		AgentID:      e.AgentID,
		EventType:    e.EventType,
		ScheduledAt:  e.ScheduledAt.Format(time.RFC3339),
		ReminderSent: e.ReminderSentAt != nil,
	}
}
