package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"crm_rotation_backend/internal/events"
	"crm_rotation_backend/internal/reminders/repository"
	"crm_rotation_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// DetailStore loads a claimed event with contact data.
type DetailStore interface {
	GetDetails(ctx context.Context, id uuid.UUID) (repository.Details, error)
}

// ComplianceChecker re-checks the lead's number at delivery time.
type ComplianceChecker interface {
	IsBlocked(ctx context.Context, phone string) (bool, error)
}

// Worker consumes reminder tasks and publishes ReminderDue domain events
// for the notification dispatcher.
type Worker struct {
	store      DetailStore
	compliance ComplianceChecker
	bus        events.Bus
	log        *logger.Logger
}

// NewWorker creates a reminder worker.
func NewWorker(store DetailStore, compliance ComplianceChecker, bus events.Bus, log *logger.Logger) *Worker {
	return &Worker{store: store, compliance: compliance, bus: bus, log: log}
}

// RegisterHandlers mounts the worker on an asynq mux.
func (w *Worker) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeReminderDue, w.HandleReminderDue)
}

// HandleReminderDue processes one claimed reminder. A deleted event is
// dropped, not retried.
func (w *Worker) HandleReminderDue(ctx context.Context, task *asynq.Task) error {
	var payload ReminderDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal reminder payload: %v: %w", err, asynq.SkipRetry)
	}

	details, err := w.store.GetDetails(ctx, payload.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		w.log.Warn("claimed reminder no longer exists", "event_id", payload.EventID)
		return nil
	}
	if err != nil {
		return err
	}

	// Compliance is re-checked at delivery time; a number listed between
	// claim and delivery still gets suppressed downstream.
	contactable := details.Contactable
	blocked, err := w.compliance.IsBlocked(ctx, details.LeadPhone)
	if err != nil {
		w.log.Warn("dnd lookup failed for reminder, using stored flag", "event_id", payload.EventID, "error", err)
	} else {
		contactable = !blocked
	}

	w.bus.Publish(ctx, events.ReminderDue{
		BaseEvent:   events.NewBaseEvent(),
		EventID:     details.Event.ID,
		EventType:   details.Event.EventType,
		LeadID:      details.Event.LeadID,
		LeadName:    details.LeadName,
		LeadPhone:   details.LeadPhone,
		AgentID:     details.Event.AgentID,
		AgentEmail:  details.AgentEmail,
		AgentPhone:  details.AgentPhone,
		ScheduledAt: details.Event.ScheduledAt,
		Contactable: contactable,
	})
	return nil
}
