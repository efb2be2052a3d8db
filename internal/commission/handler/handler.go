// Package handler exposes commission admin endpoints.
package handler

import (
	"context"
	"strconv"
	"time"

	"crm_rotation_backend/internal/commission/repository"
	"crm_rotation_backend/internal/commission/transport"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Service defines the commission operations consumed by HTTP transport.
type Service interface {
	ListSlabs(ctx context.Context, tier *int) ([]repository.Slab, error)
	ListConversions(ctx context.Context, limit int) ([]repository.Conversion, error)
}

// Handler handles commission admin requests.
type Handler struct {
	svc Service
}

// New creates a new commission handler.
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts commission endpoints on the admin group.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/commission-slabs", h.listSlabs)
	admin.GET("/conversions", h.listConversions)
}

func (h *Handler) listSlabs(c *gin.Context) {
	var tier *int
	if raw := c.Query("tier"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid tier"))
			return
		}
		tier = &v
	}

	slabs, err := h.svc.ListSlabs(c.Request.Context(), tier)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	items := make([]transport.SlabResponse, 0, len(slabs))
	for _, s := range slabs {
		items = append(items, transport.SlabResponse{
			ID: s.ID, Tier: s.Tier, SlabFrom: s.SlabFrom, SlabTo: s.SlabTo, Percentage: s.Percentage,
		})
	}
	httpkit.OK(c, transport.SlabListResponse{Items: items, Total: len(items)})
}

func (h *Handler) listConversions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	conversions, err := h.svc.ListConversions(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	items := make([]transport.ConversionResponse, 0, len(conversions))
	for _, conv := range conversions {
		items = append(items, transport.ConversionResponse{
			ID:         conv.ID,
			LeadID:     conv.LeadID,
			AgentID:    conv.AgentID,
			DealValue:  conv.DealValue,
			Percentage: conv.Percentage,
			CreatedAt:  conv.CreatedAt.Format(time.RFC3339),
		})
	}
	httpkit.OK(c, transport.ConversionListResponse{Items: items, Total: len(items)})
}
