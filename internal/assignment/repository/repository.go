// Package repository persists lead assignments and the rotation cursor.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("assignment not found")

	// ErrDuplicateActiveAssignment means a concurrent writer already holds
	// the active assignment for the lead. The partial unique index on
	// (lead_id) WHERE active is the backstop; the losing transaction is
	// discarded and the cursor stays put.
	ErrDuplicateActiveAssignment = errors.New("lead already has an active assignment")

	// ErrNoCandidate is returned when the pick callback declines to choose.
	ErrNoCandidate = errors.New("no candidate agent")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Assignment is one ownership record. History rows keep active=false.
type Assignment struct {
	ID                   uuid.UUID
	LeadID               uuid.UUID
	AgentID              uuid.UUID
	IsAccepted           bool
	Active               bool
	AssignedAt           time.Time
	LastActivityAt       time.Time
	ActivityCheckPending bool
	ReleasedAt           *time.Time
	ReleaseReason        *string
}

// AssignTxParams configures one assignment transaction.
type AssignTxParams struct {
	LeadID uuid.UUID
	// FreshLimit re-derives is_fresh from the post-increment attempt count.
	FreshLimit int
	// AdvanceCursor is false for escalations; the fallback admin is not part
	// of the rotation.
	AdvanceCursor bool
	// HaltRotation marks the lead escalated so sweeps leave it alone.
	HaltRotation bool
	// ReleaseReason, when set, closes the current active assignment first
	// (reassignment path).
	ReleaseReason *string
}

// AssignTx runs the whole assignment decision in one transaction: it locks
// the cursor row, asks pick to choose an agent given the cursor position,
// closes the previous assignment if reassigning, inserts the new one,
// updates the lead's rotation counters and finally advances the cursor.
// A unique violation on the active-assignment index aborts with
// ErrDuplicateActiveAssignment; nothing is retried and the cursor is
// untouched.
func (r *Repository) AssignTx(ctx context.Context, params AssignTxParams, pick func(lastAgentID uuid.UUID) (uuid.UUID, bool)) (Assignment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Assignment{}, err
	}
	defer tx.Rollback(ctx)

	var last *uuid.UUID
	if err := tx.QueryRow(ctx, `
		SELECT last_agent_id FROM assignment_cursor WHERE id = 1 FOR UPDATE
	`).Scan(&last); err != nil {
		return Assignment{}, err
	}

	cursor := uuid.Nil
	if last != nil {
		cursor = *last
	}
	agentID, ok := pick(cursor)
	if !ok {
		return Assignment{}, ErrNoCandidate
	}

	if params.ReleaseReason != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE lead_assignments
			SET active = false, released_at = now(), release_reason = $2
			WHERE lead_id = $1 AND active
		`, params.LeadID, *params.ReleaseReason); err != nil {
			return Assignment{}, err
		}
	}

	var a Assignment
	err = tx.QueryRow(ctx, `
		INSERT INTO lead_assignments (lead_id, agent_id)
		VALUES ($1, $2)
		RETURNING id, lead_id, agent_id, is_accepted, active, assigned_at,
			last_activity_at, activity_check_pending, released_at, release_reason
	`, params.LeadID, agentID).Scan(
		&a.ID, &a.LeadID, &a.AgentID, &a.IsAccepted, &a.Active, &a.AssignedAt,
		&a.LastActivityAt, &a.ActivityCheckPending, &a.ReleasedAt, &a.ReleaseReason,
	)
	if isUniqueViolation(err) {
		return Assignment{}, ErrDuplicateActiveAssignment
	}
	if err != nil {
		return Assignment{}, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE leads
		SET assignment_attempts = assignment_attempts + 1,
			queued = false,
			is_fresh = (assignment_attempts + 1 < $2),
			rotation_halted = $3,
			last_activity_at = now(),
			updated_at = now()
		WHERE id = $1
	`, params.LeadID, params.FreshLimit, params.HaltRotation); err != nil {
		return Assignment{}, err
	}

	if params.AdvanceCursor {
		if _, err := tx.Exec(ctx, `
			UPDATE assignment_cursor SET last_agent_id = $1, updated_at = now() WHERE id = 1
		`, agentID); err != nil {
			return Assignment{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// Accept marks the active assignment accepted and refreshes activity.
func (r *Repository) Accept(ctx context.Context, leadID, agentID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_assignments
		SET is_accepted = true, last_activity_at = now(), activity_check_pending = false
		WHERE lead_id = $1 AND agent_id = $2 AND active
	`, leadID, agentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Release closes the active assignment with a reason. The caller re-queues
// the lead.
func (r *Repository) Release(ctx context.Context, leadID uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_assignments
		SET active = false, released_at = now(), release_reason = $2
		WHERE lead_id = $1 AND active
	`, leadID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchActivity refreshes the activity timestamp and clears a pending
// no-activity check on the active assignment.
func (r *Repository) TouchActivity(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_assignments
		SET last_activity_at = now(), activity_check_pending = false
		WHERE lead_id = $1 AND active
	`, leadID)
	return err
}

// ActiveCounts returns the number of active assignments per agent, for
// capacity checks.
func (r *Repository) ActiveCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT agent_id, count(*) FROM lead_assignments WHERE active GROUP BY agent_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// StaleAssignment is a no-activity rotation candidate.
type StaleAssignment struct {
	LeadID   uuid.UUID
	AgentID  uuid.UUID
	Attempts int
}

// ListStale returns active assignments idle since before the cutoff on
// rotatable leads, flagging each as check-pending so a later sweep can tell
// first sighting from repeat.
func (r *Repository) ListStale(ctx context.Context, before time.Time, limit int) ([]StaleAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE lead_assignments a
		SET activity_check_pending = true
		FROM leads l
		WHERE a.lead_id = l.id
		  AND a.active
		  AND a.last_activity_at < $1
		  AND NOT l.rotation_halted
		  AND l.archived_at IS NULL
		  AND a.id IN (
			SELECT a2.id FROM lead_assignments a2
			JOIN leads l2 ON l2.id = a2.lead_id
			WHERE a2.active AND a2.last_activity_at < $1
			  AND NOT l2.rotation_halted AND l2.archived_at IS NULL
			ORDER BY a2.last_activity_at ASC
			LIMIT $2
		  )
		RETURNING a.lead_id, a.agent_id, l.assignment_attempts
	`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]StaleAssignment, 0)
	for rows.Next() {
		var s StaleAssignment
		if err := rows.Scan(&s.LeadID, &s.AgentID, &s.Attempts); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// GetActive returns the active assignment for a lead.
func (r *Repository) GetActive(ctx context.Context, leadID uuid.UUID) (Assignment, error) {
	var a Assignment
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, agent_id, is_accepted, active, assigned_at,
			last_activity_at, activity_check_pending, released_at, release_reason
		FROM lead_assignments
		WHERE lead_id = $1 AND active
	`, leadID).Scan(
		&a.ID, &a.LeadID, &a.AgentID, &a.IsAccepted, &a.Active, &a.AssignedAt,
		&a.LastActivityAt, &a.ActivityCheckPending, &a.ReleasedAt, &a.ReleaseReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrNotFound
	}
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
