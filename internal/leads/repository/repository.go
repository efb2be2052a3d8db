package repository

import (
	"context"
	"errors"
	"time"

	"crm_rotation_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                 uuid.UUID
	Name               string
	Phone              string
	Email              *string
	Source             string
	SubSource          *string
	Territory          *string
	StatusID           int
	SubStatus          *string
	DealValue          *int64
	AssignmentAttempts int
	IsFresh            bool
	Contactable        bool
	Queued             bool
	RotationHalted     bool
	StatusChangedAt    time.Time
	LastActivityAt     time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const leadColumns = `id, name, phone, email, source, sub_source, territory, status_id, sub_status,
	deal_value, assignment_attempts, is_fresh, contactable, queued, rotation_halted,
	status_changed_at, last_activity_at, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.Source, &l.SubSource, &l.Territory,
		&l.StatusID, &l.SubStatus, &l.DealValue, &l.AssignmentAttempts, &l.IsFresh,
		&l.Contactable, &l.Queued, &l.RotationHalted,
		&l.StatusChangedAt, &l.LastActivityAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return l, nil
}

type CreateLeadParams struct {
	Name        string
	Phone       string
	Email       *string
	Source      string
	SubSource   *string
	Territory   *string
	Contactable bool
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, phone, email, source, sub_source, territory, status_id, contactable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+leadColumns,
		params.Name, params.Phone, params.Email, params.Source, params.SubSource,
		params.Territory, domain.StatusNew, params.Contactable,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND archived_at IS NULL
	`, id)
	return scanLead(row)
}

// ListQueued returns unassigned leads in intake order.
func (r *Repository) ListQueued(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE queued AND NOT rotation_halted AND archived_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// UpdateStatus changes the lead's status/sub-status pair and stamps
// status_changed_at. Pair legality is the service's responsibility.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, statusID int, subStatus *string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status_id = $2, sub_status = $3, status_changed_at = now(),
			last_activity_at = now(), updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
		RETURNING `+leadColumns,
		id, statusID, subStatus,
	)
	return scanLead(row)
}

// SetDealValue records the deal value on a converting lead.
func (r *Repository) SetDealValue(ctx context.Context, id uuid.UUID, dealValue int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET deal_value = $2, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
	`, id, dealValue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkQueued returns a lead to the unassigned queue.
func (r *Repository) MarkQueued(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET queued = true, updated_at = now()
		WHERE id = $1 AND archived_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetContactable flips the compliance flag on one lead.
func (r *Repository) SetContactable(ctx context.Context, id uuid.UUID, contactable bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET contactable = $2, updated_at = now() WHERE id = $1
	`, id, contactable)
	return err
}

// MarkUncontactableByDND flags every lead whose phone appears in the DND
// registry. Returns the number of newly flagged leads; already-flagged rows
// are untouched, which keeps the sweep idempotent.
func (r *Repository) MarkUncontactableByDND(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET contactable = false, updated_at = now()
		WHERE contactable
		  AND archived_at IS NULL
		  AND phone IN (SELECT phone FROM dnd_entries)
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ResetFreshFlags re-derives is_fresh from the attempt counter. Guards
// against stale flags after manual edits.
func (r *Repository) ResetFreshFlags(ctx context.Context, freshLimit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET is_fresh = (assignment_attempts < $1), updated_at = now()
		WHERE is_fresh <> (assignment_attempts < $1)
		  AND archived_at IS NULL
	`, freshLimit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListDumpIdle returns Dump-status leads untouched since the cutoff.
func (r *Repository) ListDumpIdle(ctx context.Context, before time.Time, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status_id = $1 AND last_activity_at < $2 AND archived_at IS NULL
		ORDER BY last_activity_at ASC
		LIMIT $3
	`, domain.StatusDump, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ResetToColdCall converts an idle dump lead back into the cold-call intake
// pool, resetting its lifecycle counters.
func (r *Repository) ResetToColdCall(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status_id = $2, sub_status = NULL, queued = true,
			assignment_attempts = 0, is_fresh = true, rotation_halted = false,
			status_changed_at = now(), last_activity_at = now(), updated_at = now()
		WHERE id = $1 AND status_id = $3 AND archived_at IS NULL
	`, id, domain.StatusColdCall, domain.StatusDump)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StuckLead is a status-rotation candidate: a lead and its current owner.
type StuckLead struct {
	LeadID   uuid.UUID
	AgentID  uuid.UUID
	Attempts int
}

// ListStatusStuck returns leads stuck in a status since before the cutoff,
// still under the attempt ceiling, together with their active owner.
// Leads at or over maxAssignments are left for manual review.
func (r *Repository) ListStatusStuck(ctx context.Context, statusID int, changedBefore time.Time, maxAssignments, limit int) ([]StuckLead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, a.agent_id, l.assignment_attempts
		FROM leads l
		JOIN lead_assignments a ON a.lead_id = l.id AND a.active
		WHERE l.status_id = $1
		  AND l.status_changed_at < $2
		  AND l.assignment_attempts < $3
		  AND NOT l.rotation_halted
		  AND l.archived_at IS NULL
		ORDER BY l.status_changed_at ASC
		LIMIT $4
	`, statusID, changedBefore, maxAssignments, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]StuckLead, 0)
	for rows.Next() {
		var s StuckLead
		if err := rows.Scan(&s.LeadID, &s.AgentID, &s.Attempts); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ActiveOwner returns the agent currently owning the lead and that agent's
// designation tier, if any assignment is active.
func (r *Repository) ActiveOwner(ctx context.Context, leadID uuid.UUID) (uuid.UUID, *int, error) {
	var agentID uuid.UUID
	var tier *int
	err := r.pool.QueryRow(ctx, `
		SELECT a.agent_id, ag.designation_tier
		FROM lead_assignments a
		JOIN agents ag ON ag.id = a.agent_id
		WHERE a.lead_id = $1 AND a.active
	`, leadID).Scan(&agentID, &tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, nil, err
	}
	return agentID, tier, nil
}

// ListTaxonomy loads the status/sub-status tables into a domain taxonomy.
func (r *Repository) ListTaxonomy(ctx context.Context) (domain.Taxonomy, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, sort_order FROM lead_statuses ORDER BY sort_order`)
	if err != nil {
		return domain.Taxonomy{}, err
	}
	defer rows.Close()

	statuses := make([]domain.Status, 0)
	for rows.Next() {
		var s domain.Status
		if err := rows.Scan(&s.ID, &s.Name, &s.SortOrder); err != nil {
			return domain.Taxonomy{}, err
		}
		statuses = append(statuses, s)
	}
	if rows.Err() != nil {
		return domain.Taxonomy{}, rows.Err()
	}

	subRows, err := r.pool.Query(ctx, `SELECT status_id, name FROM lead_sub_statuses`)
	if err != nil {
		return domain.Taxonomy{}, err
	}
	defer subRows.Close()

	pairs := make(map[int][]string)
	for subRows.Next() {
		var statusID int
		var name string
		if err := subRows.Scan(&statusID, &name); err != nil {
			return domain.Taxonomy{}, err
		}
		pairs[statusID] = append(pairs[statusID], name)
	}
	if subRows.Err() != nil {
		return domain.Taxonomy{}, subRows.Err()
	}

	return domain.NewTaxonomy(statuses, pairs), nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	items := make([]Lead, 0)
	for rows.Next() {
		var l Lead
		err := rows.Scan(
			&l.ID, &l.Name, &l.Phone, &l.Email, &l.Source, &l.SubSource, &l.Territory,
			&l.StatusID, &l.SubStatus, &l.DealValue, &l.AssignmentAttempts, &l.IsFresh,
			&l.Contactable, &l.Queued, &l.RotationHalted,
			&l.StatusChangedAt, &l.LastActivityAt, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}
