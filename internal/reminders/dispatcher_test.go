package reminders

import (
	"context"
	"testing"
	"time"

	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/internal/reminders/repository"
	"crm_rotation_backend/platform/logger"

	"github.com/google/uuid"
)

// claimingStore mimics the conditional-update claim: each event can be
// claimed exactly once, regardless of how many ticks observe it as due.
type claimingStore struct {
	events map[uuid.UUID]repository.ScheduledEvent
}

func (s *claimingStore) ClaimDue(_ context.Context, now time.Time, callMins, meetingMins, _ int) ([]repository.ScheduledEvent, error) {
	claimed := make([]repository.ScheduledEvent, 0)
	for id, e := range s.events {
		if e.ReminderSentAt != nil {
			continue
		}
		lead := time.Duration(callMins) * time.Minute
		if e.EventType == repository.EventMeeting {
			lead = time.Duration(meetingMins) * time.Minute
		}
		if e.ScheduledAt.After(now) && !e.ScheduledAt.Add(-lead).After(now) {
			stamp := now
			e.ReminderSentAt = &stamp
			s.events[id] = e
			claimed = append(claimed, e)
		}
	}
	return claimed, nil
}

type countingEnqueuer struct {
	perEvent map[uuid.UUID]int
}

func (c *countingEnqueuer) EnqueueReminder(_ context.Context, eventID uuid.UUID) error {
	c.perEvent[eventID]++
	return nil
}

func reminderSnapshot() policy.Snapshot {
	return policy.Snapshot{
		CallReminderLead:      30 * time.Minute,
		MeetingReminderLead:   60 * time.Minute,
		ReminderSweepInterval: time.Minute,
	}
}

func TestDispatchClaimsEachReminderOnce(t *testing.T) {
	now := time.Now()
	store := &claimingStore{events: map[uuid.UUID]repository.ScheduledEvent{}}
	enqueuer := &countingEnqueuer{perEvent: map[uuid.UUID]int{}}
	d := NewDispatcher(store, enqueuer, nil, logger.New("development"))

	dueCall := repository.ScheduledEvent{
		ID: uuid.New(), EventType: repository.EventCall, ScheduledAt: now.Add(20 * time.Minute),
	}
	farCall := repository.ScheduledEvent{
		ID: uuid.New(), EventType: repository.EventCall, ScheduledAt: now.Add(3 * time.Hour),
	}
	dueMeeting := repository.ScheduledEvent{
		ID: uuid.New(), EventType: repository.EventMeeting, ScheduledAt: now.Add(45 * time.Minute),
	}
	for _, e := range []repository.ScheduledEvent{dueCall, farCall, dueMeeting} {
		store.events[e.ID] = e
	}

	enqueued, err := d.dispatch(context.Background(), now, reminderSnapshot())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if enqueued != 2 {
		t.Fatalf("expected 2 reminders (due call + due meeting), got %d", enqueued)
	}
	if enqueuer.perEvent[farCall.ID] != 0 {
		t.Fatalf("event outside its window must not be dispatched")
	}

	// Overlapping window: a second pass observes the same rows as due but
	// they are already claimed.
	enqueued, err = d.dispatch(context.Background(), now.Add(time.Minute), reminderSnapshot())
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if enqueued != 0 {
		t.Fatalf("claimed reminders must not be dispatched again, got %d", enqueued)
	}
	for id, n := range enqueuer.perEvent {
		if n != 1 {
			t.Fatalf("event %s dispatched %d times", id, n)
		}
	}
}

func TestDispatchDisabledWithoutLeadTimes(t *testing.T) {
	now := time.Now()
	store := &claimingStore{events: map[uuid.UUID]repository.ScheduledEvent{
		uuid.New(): {ID: uuid.New(), EventType: repository.EventCall, ScheduledAt: now.Add(time.Minute)},
	}}
	enqueuer := &countingEnqueuer{perEvent: map[uuid.UUID]int{}}
	d := NewDispatcher(store, enqueuer, nil, logger.New("development"))

	enqueued, err := d.dispatch(context.Background(), now, policy.Snapshot{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if enqueued != 0 {
		t.Fatalf("zero lead times must disable dispatch")
	}
}
