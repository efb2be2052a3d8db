// Package handler exposes lead intake and lifecycle endpoints.
package handler

import (
	"context"
	"strconv"

	"crm_rotation_backend/internal/leads/transport"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/httpkit"
	"crm_rotation_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Service defines the lead operations consumed by HTTP transport.
type Service interface {
	Intake(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error)
	Get(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error)
	ListQueued(ctx context.Context, limit int) (transport.LeadListResponse, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, req transport.ChangeStatusRequest) (transport.LeadResponse, error)
}

// Handler handles lead HTTP requests.
type Handler struct {
	svc Service
	val *validator.Validator
}

// New creates a new lead handler.
func New(svc Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts lead endpoints. Intake is public so external capture
// forms can post directly; everything else requires authentication.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/leads", h.create)

	leads := protected.Group("/leads")
	leads.GET("/queue", h.listQueued)
	leads.GET("/:id", h.get)
	leads.PUT("/:id/status", h.changeStatus)
}

func (h *Handler) create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	resp, err := h.svc.Intake(c.Request.Context(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) listQueued(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	resp, err := h.svc.ListQueued(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) changeStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	var req transport.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	resp, err := h.svc.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}
