// Package handler exposes assignment endpoints.
package handler

import (
	"context"

	"crm_rotation_backend/internal/assignment/service"
	"crm_rotation_backend/internal/assignment/transport"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Engine defines the assignment operations consumed by HTTP transport.
type Engine interface {
	AssignLead(ctx context.Context, leadID uuid.UUID, opts service.AssignOptions) (service.Result, error)
	Accept(ctx context.Context, leadID, agentID uuid.UUID) error
	Reject(ctx context.Context, leadID, agentID uuid.UUID) error
}

// PolicyLoader provides the snapshot a manual trigger runs under.
type PolicyLoader interface {
	Load(ctx context.Context) (policy.Snapshot, error)
}

// Handler handles assignment HTTP requests.
type Handler struct {
	engine Engine
	loader PolicyLoader
}

// New creates a new assignment handler.
func New(engine Engine, loader PolicyLoader) *Handler {
	return &Handler{engine: engine, loader: loader}
}

// RegisterRoutes mounts assignment endpoints on the authenticated group.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	leads := protected.Group("/leads")
	leads.POST("/:id/assign", h.assign)
	leads.POST("/:id/accept", h.accept)
	leads.POST("/:id/reject", h.reject)
}

func (h *Handler) assign(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	snap, err := h.loader.Load(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	res, err := h.engine.AssignLead(c.Request.Context(), leadID, service.AssignOptions{Snapshot: snap})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	resp := transport.AssignResponse{Outcome: res.Outcome}
	if res.AgentID != uuid.Nil {
		resp.AgentID = &res.AgentID
		resp.AssignmentID = &res.AssignmentID
	}
	httpkit.OK(c, resp)
}

func (h *Handler) accept(c *gin.Context) {
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

	if err := h.engine.Accept(c.Request.Context(), leadID, agentID); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"status": "accepted"})
}

func (h *Handler) reject(c *gin.Context) {
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

	if err := h.engine.Reject(c.Request.Context(), leadID, agentID); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"status": "rejected"})
}
