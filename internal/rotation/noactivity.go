package rotation

import (
	"context"
	"time"

	"crm_rotation_backend/internal/assignment/repository"
	assignsvc "crm_rotation_backend/internal/assignment/service"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/logger"
)

// StaleLister flags and returns assignments idle past the cutoff.
type StaleLister interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]repository.StaleAssignment, error)
}

// NoActivitySweep rotates leads whose owner has gone quiet.
type NoActivitySweep struct {
	assignments StaleLister
	assigner    Assigner
	log         *logger.Logger
}

// NewNoActivitySweep creates the no-activity sweep.
func NewNoActivitySweep(assignments StaleLister, assigner Assigner, log *logger.Logger) *NoActivitySweep {
	return &NoActivitySweep{assignments: assignments, assigner: assigner, log: log}
}

func (s *NoActivitySweep) Name() string { return "no_activity" }

// Run reassigns every assignment idle longer than the configured timeout,
// excluding the current owner. A zero timeout disables the sweep.
func (s *NoActivitySweep) Run(ctx context.Context, now time.Time, snap policy.Snapshot) (Result, error) {
	if snap.NoActivityTimeout == 0 {
		return Result{}, nil
	}

	stale, err := s.assignments.ListStale(ctx, now.Add(-snap.NoActivityTimeout), sweepBatchSize)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, item := range stale {
		owner := item.AgentID
		outcome, err := s.assigner.AssignLead(ctx, item.LeadID, assignsvc.AssignOptions{
			Snapshot:       snap,
			ExcludeAgentID: &owner,
			ReleaseReason:  "no_activity",
		})
		if err != nil {
			s.log.Warn("no-activity rotation failed for lead", "lead_id", item.LeadID, "error", err)
			res.Skipped++
			continue
		}
		if outcome.Outcome == assignsvc.OutcomeReassigned || outcome.Outcome == assignsvc.OutcomeEscalated {
			res.Reassigned++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}
