package rotation

import (
	"context"
	"time"

	"crm_rotation_backend/internal/policy"
)

// DNDFlagger marks leads whose phone is on the registry non-contactable.
type DNDFlagger interface {
	MarkUncontactableByDND(ctx context.Context) (int64, error)
}

// DNDSweep is the daily backstop behind the synchronous compliance checks:
// it catches leads whose number was listed after the last per-lead check.
type DNDSweep struct {
	leads DNDFlagger
}

// NewDNDSweep creates the DND reconciliation sweep.
func NewDNDSweep(leads DNDFlagger) *DNDSweep {
	return &DNDSweep{leads: leads}
}

func (s *DNDSweep) Name() string { return "dnd_reconcile" }

func (s *DNDSweep) Run(ctx context.Context, _ time.Time, snap policy.Snapshot) (Result, error) {
	if !snap.DNDSweepEnabled {
		return Result{}, nil
	}
	n, err := s.leads.MarkUncontactableByDND(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Updated: int(n)}, nil
}
