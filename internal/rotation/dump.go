package rotation

import (
	"context"
	"time"

	leadrepo "crm_rotation_backend/internal/leads/repository"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/logger"

	"github.com/google/uuid"
)

// DumpStore lists idle dumped leads and recycles them.
type DumpStore interface {
	ListDumpIdle(ctx context.Context, before time.Time, limit int) ([]leadrepo.Lead, error)
	ResetToColdCall(ctx context.Context, id uuid.UUID) error
}

// DumpSweep is the daily pass that recycles leads parked in Dump long
// enough back into the cold-call intake pool.
type DumpSweep struct {
	leads DumpStore
	log   *logger.Logger
}

// NewDumpSweep creates the dump recycling sweep.
func NewDumpSweep(leads DumpStore, log *logger.Logger) *DumpSweep {
	return &DumpSweep{leads: leads, log: log}
}

func (s *DumpSweep) Name() string { return "dump_to_cold_call" }

func (s *DumpSweep) Run(ctx context.Context, now time.Time, snap policy.Snapshot) (Result, error) {
	if snap.DumpToColdCallDays == 0 {
		return Result{}, nil
	}

	cutoff := now.Add(-time.Duration(snap.DumpToColdCallDays) * 24 * time.Hour)
	idle, err := s.leads.ListDumpIdle(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, lead := range idle {
		if err := s.leads.ResetToColdCall(ctx, lead.ID); err != nil {
			s.log.Warn("dump recycling failed for lead", "lead_id", lead.ID, "error", err)
			res.Skipped++
			continue
		}
		res.Updated++
	}
	return res, nil
}
