package policy

import (
	apphttp "crm_rotation_backend/internal/http"
	"crm_rotation_backend/internal/policy/handler"
	"crm_rotation_backend/internal/policy/repository"
	"crm_rotation_backend/platform/logger"
	"crm_rotation_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the policy bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *handler.Handler
}

// NewModule creates and initializes the policy module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := New(repository.New(pool), log)
	return &Module{
		service: svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "policy"
}

// Service returns the policy service for use by the engine and sweeps.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts policy admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
