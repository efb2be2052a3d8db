package rotation

import (
	"context"
	"time"

	"crm_rotation_backend/internal/policy"
)

// FreshFlagResetter re-derives the is_fresh flag from attempt counts.
type FreshFlagResetter interface {
	ResetFreshFlags(ctx context.Context, freshLimit int) (int64, error)
}

// FreshLeadSweep is the daily pass that corrects drifted is_fresh flags,
// for example after manual data edits.
type FreshLeadSweep struct {
	leads FreshFlagResetter
}

// NewFreshLeadSweep creates the fresh-flag sweep.
func NewFreshLeadSweep(leads FreshFlagResetter) *FreshLeadSweep {
	return &FreshLeadSweep{leads: leads}
}

func (s *FreshLeadSweep) Name() string { return "fresh_lead" }

func (s *FreshLeadSweep) Run(ctx context.Context, _ time.Time, snap policy.Snapshot) (Result, error) {
	if !snap.FreshLeadSweepEnabled || snap.FreshLeadAssignmentLimit == 0 {
		return Result{}, nil
	}
	n, err := s.leads.ResetFreshFlags(ctx, snap.FreshLeadAssignmentLimit)
	if err != nil {
		return Result{}, err
	}
	return Result{Updated: int(n)}, nil
}
