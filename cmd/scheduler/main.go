package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_rotation_backend/internal/assignment"
	"crm_rotation_backend/internal/compliance"
	"crm_rotation_backend/internal/events"
	"crm_rotation_backend/internal/leads"
	"crm_rotation_backend/internal/notification"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/internal/reminders"
	"crm_rotation_backend/internal/rotation"
	"crm_rotation_backend/internal/rotation/sweeplock"
	"crm_rotation_backend/platform/config"
	"crm_rotation_backend/platform/db"
	"crm_rotation_backend/platform/logger"
	"crm_rotation_backend/platform/validator"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.RedisURL == "" {
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	complianceModule := compliance.NewModule(pool, val)
	policyModule := policy.NewModule(pool, val, log)
	loader := policyModule.Service()

	leadsModule, err := leads.NewModule(ctx, pool, complianceModule.Service(), eventBus, val)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	assignmentModule := assignment.NewModule(pool, leadsModule.Repository(), complianceModule.Service(), loader, eventBus, log)
	remindersModule := reminders.NewModule(pool, val)

	// Notification module subscribes to the events the sweeps and the
	// reminder worker publish.
	if _, err := notification.NewModule(cfg, pool, complianceModule.Service(), loader, eventBus, log); err != nil {
		log.Error("failed to initialize notification module", "error", err)
		panic("failed to initialize notification module: " + err.Error())
	}

	// ========================================================================
	// Sweep Runner
	// ========================================================================

	redisOpts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis URL", "error", err)
		panic("failed to parse redis URL: " + err.Error())
	}
	if cfg.GetRedisTLSInsecure() && redisOpts.TLSConfig != nil {
		redisOpts.TLSConfig.InsecureSkipVerify = true
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	lock := sweeplock.New(redisClient, cfg.GetSweepLockTTL())
	engine := assignmentModule.Engine()

	runner := rotation.NewRunner(loader, lock, log)
	runner.AddInterval(
		rotation.NewNoActivitySweep(assignmentModule.Repository(), engine, log),
		func(s policy.Snapshot) time.Duration { return s.NoActivityRotationInterval },
	)
	runner.AddInterval(
		// Per-rule check intervals live inside the sweep; the runner just
		// offers it every tick.
		rotation.NewStatusRotationSweep(leadsModule.Repository(), engine, log),
		func(policy.Snapshot) time.Duration { return time.Minute },
	)
	runner.AddInterval(
		rotation.NewDistributionSweep(leadsModule.Repository(), engine, log),
		func(s policy.Snapshot) time.Duration { return s.DistributionInterval },
	)
	runner.AddDaily(rotation.NewFreshLeadSweep(leadsModule.Repository()))
	runner.AddDaily(rotation.NewDumpSweep(leadsModule.Repository(), log))
	runner.AddDaily(rotation.NewDNDSweep(leadsModule.Repository()))

	// ========================================================================
	// Reminder Pipeline
	// ========================================================================

	redisConn, err := asynq.ParseRedisURI(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis URI for asynq", "error", err)
		panic("failed to parse redis URI for asynq: " + err.Error())
	}

	asynqClient := asynq.NewClient(redisConn)
	defer func() { _ = asynqClient.Close() }()

	enqueuer := reminders.NewAsynqEnqueuer(asynqClient, cfg.GetAsynqQueueName())
	dispatcher := reminders.NewDispatcher(remindersModule.Repository(), enqueuer, loader, log)

	srv := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
	})
	mux := asynq.NewServeMux()
	worker := reminders.NewWorker(remindersModule.Repository(), complianceModule.Service(), eventBus, log)
	worker.RegisterHandlers(mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		if err := srv.Start(mux); err != nil {
			return err
		}
		<-gctx.Done()
		srv.Shutdown()
		return gctx.Err()
	})

	log.Info("scheduler running",
		"queue", cfg.AsynqQueueName,
		"concurrency", cfg.AsynqConcurrency,
		"sweep_lock_ttl", cfg.SweepLockTTL)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduler stopped with error", "error", err)
		panic("scheduler stopped with error: " + err.Error())
	}
	log.Info("scheduler stopped")
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
