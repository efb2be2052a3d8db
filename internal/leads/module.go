// Package leads wires the lead bounded context: intake, status lifecycle and
// the unassigned queue.
package leads

import (
	"context"
	"fmt"

	"crm_rotation_backend/internal/events"
	apphttp "crm_rotation_backend/internal/http"
	"crm_rotation_backend/internal/leads/domain"
	"crm_rotation_backend/internal/leads/handler"
	"crm_rotation_backend/internal/leads/repository"
	"crm_rotation_backend/internal/leads/service"
	"crm_rotation_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo     *repository.Repository
	service  *service.Service
	handler  *handler.Handler
	taxonomy domain.Taxonomy
}

// NewModule creates the leads module. The status taxonomy is loaded once at
// startup; statuses are seed data, not runtime-mutable.
func NewModule(ctx context.Context, pool *pgxpool.Pool, compliance service.ComplianceChecker, bus events.Bus, val *validator.Validator) (*Module, error) {
	repo := repository.New(pool)

	taxonomy, err := repo.ListTaxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load status taxonomy: %w", err)
	}

	svc := service.New(repo, compliance, taxonomy, bus)
	return &Module{
		repo:     repo,
		service:  svc,
		handler:  handler.New(svc, val),
		taxonomy: taxonomy,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// SetActivityRecorder wires the assignment store so status changes count as
// agent activity.
func (m *Module) SetActivityRecorder(activity service.ActivityRecorder) {
	m.service.SetActivityRecorder(activity)
}

// Repository exposes the lead repository to the assignment and rotation
// modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Taxonomy exposes the loaded status taxonomy for startup cross-checks.
func (m *Module) Taxonomy() domain.Taxonomy {
	return m.taxonomy
}

// RegisterRoutes mounts lead endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1, ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
