package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("setting not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Setting is one engine configuration key as stored.
type Setting struct {
	Key       string
	Value     string
	ValueType string
	Category  string
	UpdatedAt time.Time
}

// StatusRotationRule is one row of the data-driven status rotation table.
type StatusRotationRule struct {
	StatusID        int
	IntervalMinutes int
	MaxAgeMinutes   int
	MaxAssignments  int
	Enabled         bool
}

func (r *Repository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT key, value, value_type, category, updated_at
		FROM engine_settings
		ORDER BY category, key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Setting, 0)
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.ValueType, &s.Category, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}

	return items, rows.Err()
}

func (r *Repository) Get(ctx context.Context, key string) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx, `
		SELECT key, value, value_type, category, updated_at
		FROM engine_settings
		WHERE key = $1
	`, key).Scan(&s.Key, &s.Value, &s.ValueType, &s.Category, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Setting{}, ErrNotFound
	}
	if err != nil {
		return Setting{}, err
	}
	return s, nil
}

// Update changes the value of an existing key. Keys are fixed by migration;
// administrative updates never create new ones.
func (r *Repository) Update(ctx context.Context, key, value string) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx, `
		UPDATE engine_settings
		SET value = $2, updated_at = now()
		WHERE key = $1
		RETURNING key, value, value_type, category, updated_at
	`, key, value).Scan(&s.Key, &s.Value, &s.ValueType, &s.Category, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Setting{}, ErrNotFound
	}
	if err != nil {
		return Setting{}, err
	}
	return s, nil
}

func (r *Repository) ListRules(ctx context.Context) ([]StatusRotationRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status_id, interval_minutes, max_age_minutes, max_assignments, enabled
		FROM status_rotation_rules
		ORDER BY status_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]StatusRotationRule, 0)
	for rows.Next() {
		var rule StatusRotationRule
		if err := rows.Scan(&rule.StatusID, &rule.IntervalMinutes, &rule.MaxAgeMinutes, &rule.MaxAssignments, &rule.Enabled); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// UpsertRule inserts or replaces the rotation rule for one status. Adding a
// new status-based rotation is a data change, not a code change.
func (r *Repository) UpsertRule(ctx context.Context, rule StatusRotationRule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO status_rotation_rules (status_id, interval_minutes, max_age_minutes, max_assignments, enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (status_id) DO UPDATE SET
			interval_minutes = EXCLUDED.interval_minutes,
			max_age_minutes  = EXCLUDED.max_age_minutes,
			max_assignments  = EXCLUDED.max_assignments,
			enabled          = EXCLUDED.enabled
	`, rule.StatusID, rule.IntervalMinutes, rule.MaxAgeMinutes, rule.MaxAssignments, rule.Enabled)
	return err
}
