package reminders

import (
	"context"
	"time"

	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/internal/reminders/repository"
	"crm_rotation_backend/platform/logger"
)

const dispatchBatchSize = 100

// ClaimStore claims due reminders.
type ClaimStore interface {
	ClaimDue(ctx context.Context, now time.Time, callLeadMins, meetingLeadMins, limit int) ([]repository.ScheduledEvent, error)
}

// PolicyLoader supplies the reminder lead times per tick.
type PolicyLoader interface {
	Load(ctx context.Context) (policy.Snapshot, error)
}

// Dispatcher polls for events entering their reminder window and enqueues a
// task for each. The claim happens before the enqueue, so a reminder is
// delivered at most once even across replicas; a crash between claim and
// enqueue loses that reminder rather than duplicating it.
type Dispatcher struct {
	store   ClaimStore
	enqueue Enqueuer
	loader  PolicyLoader
	log     *logger.Logger
}

// NewDispatcher creates a reminder dispatcher.
func NewDispatcher(store ClaimStore, enqueue Enqueuer, loader PolicyLoader, log *logger.Logger) *Dispatcher {
	return &Dispatcher{store: store, enqueue: enqueue, loader: loader, log: log}
}

// Run blocks until the context is cancelled. The tick interval follows the
// policy snapshot, re-read each pass.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		interval := d.tick(ctx)
		if interval <= 0 {
			interval = time.Minute
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// tick claims and enqueues one batch, returning the next sleep interval.
func (d *Dispatcher) tick(ctx context.Context) time.Duration {
	snap, err := d.loader.Load(ctx)
	if err != nil {
		d.log.Error("failed to load policy snapshot for reminder tick", "error", err)
		return 0
	}

	enqueued, err := d.dispatch(ctx, time.Now(), snap)
	if err != nil {
		d.log.SweepFailed("reminder_dispatch", err)
	} else if enqueued > 0 {
		d.log.Info("reminders dispatched", "count", enqueued)
	}

	return snap.ReminderSweepInterval
}

// dispatch claims due events under the snapshot's lead times and enqueues
// each claimed one.
func (d *Dispatcher) dispatch(ctx context.Context, now time.Time, snap policy.Snapshot) (int, error) {
	callMins := int(snap.CallReminderLead / time.Minute)
	meetingMins := int(snap.MeetingReminderLead / time.Minute)
	if callMins == 0 && meetingMins == 0 {
		return 0, nil
	}

	claimed, err := d.store.ClaimDue(ctx, now, callMins, meetingMins, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, event := range claimed {
		if err := d.enqueue.EnqueueReminder(ctx, event.ID); err != nil {
			// The row is already claimed; this reminder is lost, not retried.
			d.log.Error("failed to enqueue claimed reminder", "event_id", event.ID, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
