// Package repository reads the agent roster. Agents are managed by the wider
// CRM; the engine only consumes them.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("agent not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Agent is one roster entry.
type Agent struct {
	ID              uuid.UUID
	Name            string
	Email           string
	Phone           string
	DesignationTier *int
	Territory       *string
	IsActive        bool
	OnLeave         bool
}

const agentColumns = `id, name, email, phone, designation_tier, territory, is_active, on_leave`

// EligibleParams narrows the candidate pool for one assignment decision.
type EligibleParams struct {
	Territory *string
	ExcludeID *uuid.UUID
}

// ListEligible returns active, present agents ordered by id. The stable id
// order is what makes cursor rotation deterministic. Territory narrows the
// pool when set; ExcludeID drops the current owner on reassignment.
func (r *Repository) ListEligible(ctx context.Context, params EligibleParams) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE is_active
		  AND NOT on_leave
		  AND ($1::text IS NULL OR territory = $1)
		  AND ($2::uuid IS NULL OR id <> $2)
		ORDER BY id ASC
	`, params.Territory, params.ExcludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := make([]Agent, 0)
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.DesignationTier, &a.Territory, &a.IsActive, &a.OnLeave); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// GetByID returns one agent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Agent, error) {
	var a Agent
	err := r.pool.QueryRow(ctx, `
		SELECT `+agentColumns+` FROM agents WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.DesignationTier, &a.Territory, &a.IsActive, &a.OnLeave)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, err
	}
	return a, nil
}
