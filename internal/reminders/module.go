package reminders

import (
	apphttp "crm_rotation_backend/internal/http"
	"crm_rotation_backend/internal/reminders/handler"
	"crm_rotation_backend/internal/reminders/repository"
	"crm_rotation_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the reminders bounded context module implementing http.Module.
// The dispatcher and worker halves are composed separately in the scheduler
// binary; the API side only schedules and lists events.
type Module struct {
	repo    *repository.Repository
	service *Service
	handler *handler.Handler
}

// NewModule creates the reminders module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := NewService(repo)
	return &Module{
		repo:    repo,
		service: svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reminders"
}

// Repository exposes the event store to the dispatcher and worker.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts scheduled-event endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
