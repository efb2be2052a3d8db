// Package rotation runs the periodic sweeps that keep leads moving: stale
// ownership rotation, status-based rotation, queue redistribution and the
// daily hygiene passes.
package rotation

import (
	"context"
	"time"

	assignsvc "crm_rotation_backend/internal/assignment/service"
	"crm_rotation_backend/internal/policy"

	"github.com/google/uuid"
)

// Result is what one sweep tick did. Reassigned counts ownership changes;
// Updated counts flag-only writes from the hygiene sweeps.
type Result struct {
	Reassigned int
	Skipped    int
	Updated    int
}

// Sweep is one rotation pass. Run must be idempotent for a given state:
// conditions are re-checked against timestamps at execution time and a
// rotation refreshes those timestamps, so an immediate re-run does nothing.
type Sweep interface {
	Name() string
	Run(ctx context.Context, now time.Time, snap policy.Snapshot) (Result, error)
}

// Assigner is the slice of the assignment engine the sweeps use.
type Assigner interface {
	AssignLead(ctx context.Context, leadID uuid.UUID, opts assignsvc.AssignOptions) (assignsvc.Result, error)
}

const sweepBatchSize = 200
