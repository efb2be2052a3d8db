// Package reminders schedules call and meeting reminders: a dispatcher
// claims due events and hands them to asynq; a worker turns the task into a
// ReminderDue domain event.
package reminders

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskTypeReminderDue is the asynq task type for claimed reminders.
const TaskTypeReminderDue = "reminders:due"

// ReminderDuePayload is the task body. Only the id travels; the worker
// reloads the row so it sees current contact data.
type ReminderDuePayload struct {
	EventID uuid.UUID `json:"event_id"`
}

// NewReminderDueTask builds the asynq task for one claimed event.
func NewReminderDueTask(eventID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(ReminderDuePayload{EventID: eventID})
	if err != nil {
		return nil, fmt.Errorf("marshal reminder payload: %w", err)
	}
	return asynq.NewTask(TaskTypeReminderDue, payload, asynq.MaxRetry(3)), nil
}
