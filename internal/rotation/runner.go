package rotation

import (
	"context"
	"sync"
	"time"

	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/internal/rotation/sweeplock"
	"crm_rotation_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

// PolicyLoader supplies one snapshot per tick.
type PolicyLoader interface {
	Load(ctx context.Context) (policy.Snapshot, error)
}

// dailySpec runs the hygiene sweeps off-hours.
const dailySpec = "0 3 * * *"

type entry struct {
	sweep Sweep
	// every derives the tick interval from the current snapshot; a zero
	// return disables the sweep for this tick. Nil for daily sweeps.
	every func(policy.Snapshot) time.Duration

	mu   sync.Mutex
	last time.Time
}

// Runner drives the sweeps: a minute ticker for interval sweeps and a cron
// schedule for the daily ones. Single-flight is enforced twice, an
// in-process TryLock against overlapping ticks and a redis lease against a
// second scheduler replica. A sweep that fails just waits for its next
// scheduled tick.
type Runner struct {
	loader PolicyLoader
	lock   *sweeplock.Locker
	log    *logger.Logger
	cron   *cron.Cron

	interval []*entry
	daily    []*entry
}

// NewRunner creates a sweep runner.
func NewRunner(loader PolicyLoader, lock *sweeplock.Locker, log *logger.Logger) *Runner {
	return &Runner{
		loader: loader,
		lock:   lock,
		log:    log,
		cron:   cron.New(),
	}
}

// AddInterval registers a sweep driven by a snapshot-derived interval.
func (r *Runner) AddInterval(s Sweep, every func(policy.Snapshot) time.Duration) {
	r.interval = append(r.interval, &entry{sweep: s, every: every})
}

// AddDaily registers a sweep on the daily cron schedule.
func (r *Runner) AddDaily(s Sweep) {
	r.daily = append(r.daily, &entry{sweep: s})
}

// Run blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for _, e := range r.daily {
		e := e
		if _, err := r.cron.AddFunc(dailySpec, func() {
			r.executeFresh(ctx, e)
		}); err != nil {
			return err
		}
	}
	r.cron.Start()
	defer r.cron.Stop()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			r.tick(ctx, now)
		}
	}
}

// tick loads one snapshot and fires every interval sweep that is due under
// it. The snapshot is shared across the tick but never refreshed mid-sweep.
func (r *Runner) tick(ctx context.Context, now time.Time) {
	snap, err := r.loader.Load(ctx)
	if err != nil {
		r.log.Error("failed to load policy snapshot, skipping tick", "error", err)
		return
	}

	for _, e := range r.interval {
		interval := e.every(snap)
		if interval == 0 {
			continue
		}
		if now.Sub(e.last) < interval {
			continue
		}
		e.last = now
		go r.execute(ctx, e, now, snap)
	}
}

// executeFresh is the cron entry point; daily sweeps load their own
// snapshot since the shared tick one may be hours old.
func (r *Runner) executeFresh(ctx context.Context, e *entry) {
	snap, err := r.loader.Load(ctx)
	if err != nil {
		r.log.SweepFailed(e.sweep.Name(), err)
		return
	}
	r.execute(ctx, e, time.Now(), snap)
}

func (r *Runner) execute(ctx context.Context, e *entry, now time.Time, snap policy.Snapshot) {
	if !e.mu.TryLock() {
		return
	}
	defer e.mu.Unlock()

	lease, ok, err := r.lock.Acquire(ctx, e.sweep.Name())
	if err != nil {
		r.log.SweepFailed(e.sweep.Name(), err)
		return
	}
	if !ok {
		return
	}
	defer lease.Release(context.WithoutCancel(ctx))

	start := time.Now()
	res, err := e.sweep.Run(ctx, now, snap)
	if err != nil {
		r.log.SweepFailed(e.sweep.Name(), err)
		return
	}
	r.log.SweepCompleted(e.sweep.Name(), res.Reassigned, res.Skipped, res.Updated, float64(time.Since(start).Milliseconds()))
}
