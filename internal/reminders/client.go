package reminders

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer hands claimed reminders to the task queue.
type Enqueuer interface {
	EnqueueReminder(ctx context.Context, eventID uuid.UUID) error
}

// AsynqEnqueuer is the redis-backed Enqueuer.
type AsynqEnqueuer struct {
	client *asynq.Client
	queue  string
}

// NewAsynqEnqueuer wraps an asynq client.
func NewAsynqEnqueuer(client *asynq.Client, queue string) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client, queue: queue}
}

// EnqueueReminder submits one reminder task.
func (e *AsynqEnqueuer) EnqueueReminder(ctx context.Context, eventID uuid.UUID) error {
	task, err := NewReminderDueTask(eventID)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(e.queue))
	return err
}

var _ Enqueuer = (*AsynqEnqueuer)(nil)
