// Package repository persists scheduled calls and meetings.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("scheduled event not found")

// Event types.
const (
	EventCall    = "call"
	EventMeeting = "meeting"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ScheduledEvent is one upcoming call or meeting.
type ScheduledEvent struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	AgentID        uuid.UUID
	EventType      string
	ScheduledAt    time.Time
	ReminderSentAt *time.Time
	CreatedAt      time.Time
}

// CreateParams schedules a new event.
type CreateParams struct {
	LeadID      uuid.UUID
	AgentID     uuid.UUID
	EventType   string
	ScheduledAt time.Time
}

// Create inserts a scheduled event.
func (r *Repository) Create(ctx context.Context, params CreateParams) (ScheduledEvent, error) {
	var e ScheduledEvent
	err := r.pool.QueryRow(ctx, `
		INSERT INTO scheduled_events (lead_id, agent_id, event_type, scheduled_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, agent_id, event_type, scheduled_at, reminder_sent_at, created_at
	`, params.LeadID, params.AgentID, params.EventType, params.ScheduledAt).Scan(
		&e.ID, &e.LeadID, &e.AgentID, &e.EventType, &e.ScheduledAt, &e.ReminderSentAt, &e.CreatedAt,
	)
	return e, err
}

// ClaimDue atomically stamps reminder_sent_at on every event inside its
// reminder window and returns the claimed rows. The conditional update is
// what makes delivery at-most-once: overlapping dispatcher ticks and second
// replicas claim disjoint sets.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, callLeadMins, meetingLeadMins, limit int) ([]ScheduledEvent, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE scheduled_events
		SET reminder_sent_at = now()
		WHERE id IN (
			SELECT id FROM scheduled_events
			WHERE reminder_sent_at IS NULL
			  AND scheduled_at > $1
			  AND scheduled_at - make_interval(mins => CASE WHEN event_type = 'call' THEN $2 ELSE $3 END) <= $1
			ORDER BY scheduled_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, lead_id, agent_id, event_type, scheduled_at, reminder_sent_at, created_at
	`, now, callLeadMins, meetingLeadMins, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]ScheduledEvent, 0)
	for rows.Next() {
		var e ScheduledEvent
		if err := rows.Scan(&e.ID, &e.LeadID, &e.AgentID, &e.EventType, &e.ScheduledAt, &e.ReminderSentAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Details is a claimed event joined with the contact data the notification
// needs.
type Details struct {
	Event       ScheduledEvent
	LeadName    string
	LeadPhone   string
	Contactable bool
	AgentEmail  string
	AgentPhone  string
}

// GetDetails loads one event with its lead and agent contact fields.
func (r *Repository) GetDetails(ctx context.Context, id uuid.UUID) (Details, error) {
	var d Details
	err := r.pool.QueryRow(ctx, `
		SELECT e.id, e.lead_id, e.agent_id, e.event_type, e.scheduled_at,
			e.reminder_sent_at, e.created_at,
			l.name, l.phone, l.contactable,
			a.email, a.phone
		FROM scheduled_events e
		JOIN leads l ON l.id = e.lead_id
		JOIN agents a ON a.id = e.agent_id
		WHERE e.id = $1
	`, id).Scan(
		&d.Event.ID, &d.Event.LeadID, &d.Event.AgentID, &d.Event.EventType,
		&d.Event.ScheduledAt, &d.Event.ReminderSentAt, &d.Event.CreatedAt,
		&d.LeadName, &d.LeadPhone, &d.Contactable,
		&d.AgentEmail, &d.AgentPhone,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Details{}, ErrNotFound
	}
	if err != nil {
		return Details{}, err
	}
	return d, nil
}

// ListUpcoming returns future events for one lead.
func (r *Repository) ListUpcoming(ctx context.Context, leadID uuid.UUID, limit int) ([]ScheduledEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, agent_id, event_type, scheduled_at, reminder_sent_at, created_at
		FROM scheduled_events
		WHERE lead_id = $1 AND scheduled_at > now()
		ORDER BY scheduled_at ASC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]ScheduledEvent, 0)
	for rows.Next() {
		var e ScheduledEvent
		if err := rows.Scan(&e.ID, &e.LeadID, &e.AgentID, &e.EventType, &e.ScheduledAt, &e.ReminderSentAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
