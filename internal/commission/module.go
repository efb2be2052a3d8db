package commission

import (
	"crm_rotation_backend/internal/commission/handler"
	"crm_rotation_backend/internal/commission/repository"
	"crm_rotation_backend/internal/events"
	apphttp "crm_rotation_backend/internal/http"
	"crm_rotation_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the commission bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *handler.Handler
}

// NewModule creates the commission module and subscribes it to lead
// conversions so every closed deal gets its percentage recorded.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	svc := New(repository.New(pool), log)

	bus.Subscribe(events.LeadConverted{}.EventName(), events.HandlerFunc(svc.HandleLeadConverted))

	return &Module{
		service: svc,
		handler: handler.New(svc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "commission"
}

// Service exposes the resolver.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts commission admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
