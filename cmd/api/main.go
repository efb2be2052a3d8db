package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_rotation_backend/internal/assignment"
	"crm_rotation_backend/internal/commission"
	"crm_rotation_backend/internal/compliance"
	"crm_rotation_backend/internal/events"
	apphttp "crm_rotation_backend/internal/http"
	"crm_rotation_backend/internal/http/router"
	"crm_rotation_backend/internal/leads"
	"crm_rotation_backend/internal/notification"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/internal/reminders"
	"crm_rotation_backend/migrations"
	"crm_rotation_backend/platform/config"
	"crm_rotation_backend/platform/db"
	"crm_rotation_backend/platform/logger"
	"crm_rotation_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	complianceModule := compliance.NewModule(pool, val)
	policyModule := policy.NewModule(pool, val, log)
	loader := policyModule.Service()

	leadsModule, err := leads.NewModule(ctx, pool, complianceModule.Service(), eventBus, val)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	assignmentModule := assignment.NewModule(pool, leadsModule.Repository(), complianceModule.Service(), loader, eventBus, log)
	leadsModule.SetActivityRecorder(assignmentModule.Repository())
	commissionModule := commission.NewModule(pool, eventBus, log)
	remindersModule := reminders.NewModule(pool, val)

	// Notification module subscribes to domain events (not HTTP-facing)
	if _, err := notification.NewModule(cfg, pool, complianceModule.Service(), loader, eventBus, log); err != nil {
		log.Error("failed to initialize notification module", "error", err)
		panic("failed to initialize notification module: " + err.Error())
	}

	// Every status referenced by a rotation rule must exist in the taxonomy;
	// a dangling rule would silently never rotate anything.
	snap, err := loader.Load(ctx)
	if err != nil {
		log.Error("failed to load policy snapshot", "error", err)
		panic("failed to load policy snapshot: " + err.Error())
	}
	ruleStatuses := make([]int, 0, len(snap.StatusRules))
	for _, rule := range snap.StatusRules {
		ruleStatuses = append(ruleStatuses, rule.StatusID)
	}
	if err := leadsModule.Taxonomy().EnsureStatuses(ruleStatuses); err != nil {
		log.Error("status rotation rules reference unknown statuses", "error", err)
		panic("status rotation rules reference unknown statuses: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	engine := router.New(cfg, log, pool,
		[]apphttp.Module{
			leadsModule,
			assignmentModule,
			policyModule,
			complianceModule,
			commissionModule,
			remindersModule,
		}...)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
