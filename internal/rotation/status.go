package rotation

import (
	"context"
	"sync"
	"time"

	assignsvc "crm_rotation_backend/internal/assignment/service"
	leadrepo "crm_rotation_backend/internal/leads/repository"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/logger"
)

// StuckLister returns leads sitting in a status past the cutoff.
type StuckLister interface {
	ListStatusStuck(ctx context.Context, statusID int, changedBefore time.Time, maxAssignments, limit int) ([]leadrepo.StuckLead, error)
}

// StatusRotationSweep rotates leads stuck in a status, driven entirely by
// the status_rotation_rules table. Each rule carries its own check interval,
// time-in-status threshold and attempt ceiling; leads at or over the ceiling
// are left for manual review.
type StatusRotationSweep struct {
	leads    StuckLister
	assigner Assigner
	log      *logger.Logger

	mu      sync.Mutex
	lastRun map[int]time.Time
}

// NewStatusRotationSweep creates the status rotation sweep.
func NewStatusRotationSweep(leads StuckLister, assigner Assigner, log *logger.Logger) *StatusRotationSweep {
	return &StatusRotationSweep{
		leads:    leads,
		assigner: assigner,
		log:      log,
		lastRun:  make(map[int]time.Time),
	}
}

func (s *StatusRotationSweep) Name() string { return "status_rotation" }

// Run processes every enabled rule whose check interval has elapsed.
func (s *StatusRotationSweep) Run(ctx context.Context, now time.Time, snap policy.Snapshot) (Result, error) {
	var res Result
	for _, rule := range snap.StatusRules {
		if !rule.Enabled || rule.MaxAge == 0 {
			continue
		}
		if !s.ruleDue(rule, now) {
			continue
		}

		ruleRes, err := s.runRule(ctx, now, snap, rule)
		if err != nil {
			return res, err
		}
		res.Reassigned += ruleRes.Reassigned
		res.Skipped += ruleRes.Skipped
	}
	return res, nil
}

func (s *StatusRotationSweep) ruleDue(rule policy.StatusRotationRule, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastRun[rule.StatusID]; ok && now.Sub(last) < rule.Interval {
		return false
	}
	s.lastRun[rule.StatusID] = now
	return true
}

func (s *StatusRotationSweep) runRule(ctx context.Context, now time.Time, snap policy.Snapshot, rule policy.StatusRotationRule) (Result, error) {
	stuck, err := s.leads.ListStatusStuck(ctx, rule.StatusID, now.Add(-rule.MaxAge), rule.MaxAssignments, sweepBatchSize)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, item := range stuck {
		owner := item.AgentID
		outcome, err := s.assigner.AssignLead(ctx, item.LeadID, assignsvc.AssignOptions{
			Snapshot:       snap,
			ExcludeAgentID: &owner,
			ReleaseReason:  "status_rotation",
		})
		if err != nil {
			s.log.Warn("status rotation failed for lead",
				"lead_id", item.LeadID, "status_id", rule.StatusID, "error", err)
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
