package compliance

import (
	"crm_rotation_backend/internal/compliance/handler"
	"crm_rotation_backend/internal/compliance/repository"
	apphttp "crm_rotation_backend/internal/http"
	"crm_rotation_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the compliance bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *handler.Handler
}

// NewModule creates the compliance module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	svc := New(repository.New(pool))
	return &Module{
		service: svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "compliance"
}

// Service exposes the blocklist check to intake, assignment and reminders.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts DND admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
