// Package repository reads commission slabs and records conversions.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Slab is one commission bracket. SlabTo nil means open-ended. Tier nil
// marks the default set used when an agent has no tier-specific slabs.
type Slab struct {
	ID         int
	Tier       *int
	SlabFrom   int64
	SlabTo     *int64
	Percentage float64
}

// ListByTier returns the slabs for one designation tier, ordered by range
// start. Pass nil for the default set.
func (r *Repository) ListByTier(ctx context.Context, tier *int) ([]Slab, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, designation_tier, slab_from, slab_to, percentage
		FROM commission_slabs
		WHERE designation_tier IS NOT DISTINCT FROM $1
		ORDER BY slab_from ASC
	`, tier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlabs(rows)
}

// ListAll returns every slab, tier sets first, for the admin view.
func (r *Repository) ListAll(ctx context.Context) ([]Slab, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, designation_tier, slab_from, slab_to, percentage
		FROM commission_slabs
		ORDER BY designation_tier NULLS LAST, slab_from ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlabs(rows)
}

// Conversion is one recorded deal close with its resolved commission.
type Conversion struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	AgentID    uuid.UUID
	DealValue  int64
	Percentage float64
	CreatedAt  time.Time
}

// RecordConversion logs a closed deal and the percentage applied to it.
func (r *Repository) RecordConversion(ctx context.Context, c Conversion) (Conversion, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_conversions (lead_id, agent_id, deal_value, percentage)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, c.LeadID, c.AgentID, c.DealValue, c.Percentage).Scan(&c.ID, &c.CreatedAt)
	return c, err
}

// ListConversions returns recorded conversions, newest first.
func (r *Repository) ListConversions(ctx context.Context, limit int) ([]Conversion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, agent_id, deal_value, percentage, created_at
		FROM lead_conversions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Conversion, 0)
	for rows.Next() {
		var c Conversion
		if err := rows.Scan(&c.ID, &c.LeadID, &c.AgentID, &c.DealValue, &c.Percentage, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func collectSlabs(rows pgx.Rows) ([]Slab, error) {
	slabs := make([]Slab, 0)
	for rows.Next() {
		var s Slab
		if err := rows.Scan(&s.ID, &s.Tier, &s.SlabFrom, &s.SlabTo, &s.Percentage); err != nil {
			return nil, err
		}
		slabs = append(slabs, s)
	}
	return slabs, rows.Err()
}
