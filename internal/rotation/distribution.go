package rotation

import (
	"context"
	"time"

	assignsvc "crm_rotation_backend/internal/assignment/service"
	leadrepo "crm_rotation_backend/internal/leads/repository"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/logger"
)

// QueueLister returns unassigned leads in intake order.
type QueueLister interface {
	ListQueued(ctx context.Context, limit int) ([]leadrepo.Lead, error)
}

// DistributionSweep drains the unassigned queue. Leads land there when no
// agent was eligible at intake time; this sweep retries them once capacity
// or eligibility frees up.
type DistributionSweep struct {
	leads    QueueLister
	assigner Assigner
	log      *logger.Logger
}

// NewDistributionSweep creates the queue distribution sweep.
func NewDistributionSweep(leads QueueLister, assigner Assigner, log *logger.Logger) *DistributionSweep {
	return &DistributionSweep{leads: leads, assigner: assigner, log: log}
}

func (s *DistributionSweep) Name() string { return "queue_distribution" }

func (s *DistributionSweep) Run(ctx context.Context, _ time.Time, snap policy.Snapshot) (Result, error) {
	if !snap.AutoLeadDistribution {
		return Result{}, nil
	}

	queued, err := s.leads.ListQueued(ctx, sweepBatchSize)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, lead := range queued {
		outcome, err := s.assigner.AssignLead(ctx, lead.ID, assignsvc.AssignOptions{Snapshot: snap})
		if err != nil {
			s.log.Warn("queue distribution failed for lead", "lead_id", lead.ID, "error", err)
			res.Skipped++
			continue
		}
		if outcome.Outcome == assignsvc.OutcomeAssigned || outcome.Outcome == assignsvc.OutcomeEscalated {
			res.Reassigned++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}
