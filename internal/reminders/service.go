package reminders

import (
	"context"
	"time"

	"crm_rotation_backend/internal/reminders/repository"
	"crm_rotation_backend/platform/apperr"

	"github.com/google/uuid"
)

// ScheduleStore is the persistence the scheduling API needs.
type ScheduleStore interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.ScheduledEvent, error)
	ListUpcoming(ctx context.Context, leadID uuid.UUID, limit int) ([]repository.ScheduledEvent, error)
}

// Service schedules calls and meetings.
type Service struct {
	store ScheduleStore
}

// NewService creates the scheduling service.
func NewService(store ScheduleStore) *Service {
	return &Service{store: store}
}

// Schedule books a call or meeting for a lead.
func (s *Service) Schedule(ctx context.Context, leadID, agentID uuid.UUID, eventType string, at time.Time) (repository.ScheduledEvent, error) {
	if eventType != repository.EventCall && eventType != repository.EventMeeting {
		return repository.ScheduledEvent{}, apperr.Validation("event type must be call or meeting")
	}
	if !at.After(time.Now()) {
		return repository.ScheduledEvent{}, apperr.Validation("scheduled time must be in the future")
	}
	return s.store.Create(ctx, repository.CreateParams{
		LeadID:      leadID,
		AgentID:     agentID,
		EventType:   eventType,
		ScheduledAt: at,
	})
}

// ListUpcoming returns future events for a lead.
func (s *Service) ListUpcoming(ctx context.Context, leadID uuid.UUID, limit int) ([]repository.ScheduledEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListUpcoming(ctx, leadID, limit)
}
