// Package assignment wires the assignment engine: repositories, HTTP
// endpoints and the intake event subscription.
package assignment

import (
	"context"
	"fmt"

	agentrepo "crm_rotation_backend/internal/agents/repository"
	"crm_rotation_backend/internal/assignment/handler"
	"crm_rotation_backend/internal/assignment/repository"
	"crm_rotation_backend/internal/assignment/service"
	"crm_rotation_backend/internal/events"
	apphttp "crm_rotation_backend/internal/http"
	leadrepo "crm_rotation_backend/internal/leads/repository"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PolicyLoader provides fresh snapshots for event-driven assignments.
type PolicyLoader interface {
	Load(ctx context.Context) (policy.Snapshot, error)
}

// Module is the assignment bounded context module implementing http.Module.
type Module struct {
	engine  *service.Engine
	repo    *repository.Repository
	handler *handler.Handler
	loader  PolicyLoader
	log     *logger.Logger
}

// NewModule creates the assignment module and subscribes the engine to lead
// intake, so new leads are distributed as they arrive when auto distribution
// is on.
func NewModule(pool *pgxpool.Pool, leads *leadrepo.Repository, compliance service.ComplianceChecker, loader PolicyLoader, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	engine := service.NewEngine(leads, agentrepo.New(pool), repo, compliance, bus, log)

	m := &Module{
		engine:  engine,
		repo:    repo,
		handler: handler.New(engine, loader),
		loader:  loader,
		log:     log,
	}

	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(m.onLeadCreated))
	return m
}

func (m *Module) onLeadCreated(ctx context.Context, e events.Event) error {
	created, ok := e.(events.LeadCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	snap, err := m.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load policy snapshot: %w", err)
	}

	_, err = m.engine.AssignLead(ctx, created.LeadID, service.AssignOptions{Snapshot: snap})
	return err
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "assignment"
}

// Engine exposes the engine to the rotation sweeps.
func (m *Module) Engine() *service.Engine {
	return m.engine
}

// Repository exposes the assignment repository to the rotation sweeps.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts assignment endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
