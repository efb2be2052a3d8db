// Package service implements the assignment engine: who gets the next lead.
package service

import (
	"context"
	"errors"
	"sort"

	agentrepo "crm_rotation_backend/internal/agents/repository"
	"crm_rotation_backend/internal/assignment/repository"
	"crm_rotation_backend/internal/events"
	leadrepo "crm_rotation_backend/internal/leads/repository"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/logger"

	"github.com/google/uuid"
)

// Outcome of one AssignLead call.
const (
	OutcomeAssigned   = "assigned"
	OutcomeReassigned = "reassigned"
	OutcomeQueued     = "queued"
	OutcomeSkipped    = "skipped"
	OutcomeEscalated  = "escalated"
	OutcomeDiscarded  = "discarded"
)

// Result reports what AssignLead did.
type Result struct {
	Outcome      string
	AgentID      uuid.UUID
	AssignmentID uuid.UUID
}

// AssignOptions tunes one assignment decision.
type AssignOptions struct {
	// Snapshot is the policy under which this decision runs.
	Snapshot policy.Snapshot
	// ExcludeAgentID drops the current owner from the candidate pool on
	// reassignment.
	ExcludeAgentID *uuid.UUID
	// ReleaseReason closes the existing assignment; set on rotation.
	ReleaseReason string
}

// LeadStore is the slice of the lead repository the engine needs.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
	MarkQueued(ctx context.Context, id uuid.UUID) error
	SetContactable(ctx context.Context, id uuid.UUID, contactable bool) error
}

// AgentStore lists assignment candidates.
type AgentStore interface {
	ListEligible(ctx context.Context, params agentrepo.EligibleParams) ([]agentrepo.Agent, error)
}

// AssignmentStore persists the decision.
type AssignmentStore interface {
	AssignTx(ctx context.Context, params repository.AssignTxParams, pick func(lastAgentID uuid.UUID) (uuid.UUID, bool)) (repository.Assignment, error)
	Accept(ctx context.Context, leadID, agentID uuid.UUID) error
	Release(ctx context.Context, leadID uuid.UUID, reason string) error
	ActiveCounts(ctx context.Context) (map[uuid.UUID]int, error)
	GetActive(ctx context.Context, leadID uuid.UUID) (repository.Assignment, error)
}

// ComplianceChecker reports DND membership for the lead's phone.
type ComplianceChecker interface {
	IsBlocked(ctx context.Context, phone string) (bool, error)
}

// Engine decides and records lead ownership.
type Engine struct {
	leads       LeadStore
	agents      AgentStore
	assignments AssignmentStore
	compliance  ComplianceChecker
	bus         events.Bus
	log         *logger.Logger
}

// NewEngine creates the assignment engine.
func NewEngine(leads LeadStore, agents AgentStore, assignments AssignmentStore, compliance ComplianceChecker, bus events.Bus, log *logger.Logger) *Engine {
	return &Engine{
		leads:       leads,
		agents:      agents,
		assignments: assignments,
		compliance:  compliance,
		bus:         bus,
		log:         log,
	}
}

// AssignLead runs one assignment decision under the given policy snapshot.
// An empty candidate pool is not an error: the lead goes back to the queue
// and the next distribution tick retries. A lost race against a concurrent
// assignment is discarded without advancing the cursor.
func (e *Engine) AssignLead(ctx context.Context, leadID uuid.UUID, opts AssignOptions) (Result, error) {
	snap := opts.Snapshot

	if !snap.AutoLeadDistribution {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	lead, err := e.leads.GetByID(ctx, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return Result{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return Result{}, err
	}

	if lead.RotationHalted {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	reassigning := opts.ExcludeAgentID != nil

	if snap.MaxAssignmentAttempts > 0 && lead.AssignmentAttempts >= snap.MaxAssignmentAttempts {
		return e.escalate(ctx, lead, opts)
	}

	params := agentrepo.EligibleParams{ExcludeID: opts.ExcludeAgentID}
	if snap.AssignmentStrategy == policy.StrategyTerritory && lead.Territory != nil {
		params.Territory = lead.Territory
	}

	candidates, err := e.agents.ListEligible(ctx, params)
	if err != nil {
		return Result{}, err
	}

	if snap.MaxLeadsPerAgent > 0 && len(candidates) > 0 {
		counts, err := e.assignments.ActiveCounts(ctx)
		if err != nil {
			return Result{}, err
		}
		withCapacity := candidates[:0]
		for _, a := range candidates {
			if counts[a.ID] < snap.MaxLeadsPerAgent {
				withCapacity = append(withCapacity, a)
			}
		}
		candidates = withCapacity
	}

	if len(candidates) == 0 {
		if reassigning {
			// Rotation with nobody to hand over to. The lead keeps its
			// current owner; queueing it here would leave an active
			// assignment behind and every later queue pass would lose
			// against it.
			e.log.AssignmentEvent(leadID.String(), "", OutcomeSkipped)
			return Result{Outcome: OutcomeSkipped}, nil
		}
		if err := e.leads.MarkQueued(ctx, leadID); err != nil {
			return Result{}, err
		}
		e.log.AssignmentEvent(leadID.String(), "", OutcomeQueued)
		return Result{Outcome: OutcomeQueued}, nil
	}

	ids := make([]uuid.UUID, len(candidates))
	for i, a := range candidates {
		ids[i] = a.ID
	}
	sort.Slice(ids, func(i, j int) bool { return less(ids[i], ids[j]) })

	txParams := repository.AssignTxParams{
		LeadID:        leadID,
		FreshLimit:    snap.FreshLeadAssignmentLimit,
		AdvanceCursor: true,
	}
	if reassigning {
		reason := opts.ReleaseReason
		if reason == "" {
			reason = "rotated"
		}
		txParams.ReleaseReason = &reason
	}

	assignment, err := e.assignments.AssignTx(ctx, txParams, func(cursor uuid.UUID) (uuid.UUID, bool) {
		return NextAgent(ids, cursor)
	})
	if errors.Is(err, repository.ErrDuplicateActiveAssignment) {
		e.log.AssignmentEvent(leadID.String(), "", OutcomeDiscarded)
		return Result{Outcome: OutcomeDiscarded}, nil
	}
	if err != nil {
		return Result{}, err
	}

	contactable := e.refreshContactable(ctx, lead)

	outcome := OutcomeAssigned
	if reassigning {
		outcome = OutcomeReassigned
	}
	e.log.AssignmentEvent(leadID.String(), assignment.AgentID.String(), outcome)

	e.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       leadID,
		LeadName:     lead.Name,
		AgentID:      assignment.AgentID,
		AssignmentID: assignment.ID,
		Reassigned:   reassigning,
		Contactable:  contactable,
	})

	return Result{Outcome: outcome, AgentID: assignment.AgentID, AssignmentID: assignment.ID}, nil
}

// escalate hands an exhausted lead to the fallback admin and halts rotation
// for it. The cursor is not advanced; the fallback admin is outside the
// rotation. Without a configured fallback admin the lead stays queued for
// manual review.
func (e *Engine) escalate(ctx context.Context, lead leadrepo.Lead, opts AssignOptions) (Result, error) {
	adminID := opts.Snapshot.FallbackAdminID
	if adminID == nil {
		e.log.Warn("lead exhausted assignment attempts but no fallback admin is configured", "lead_id", lead.ID)
		if opts.ExcludeAgentID != nil {
			// Still actively owned; do not queue it on top of that.
			return Result{Outcome: OutcomeSkipped}, nil
		}
		if err := e.leads.MarkQueued(ctx, lead.ID); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeQueued}, nil
	}

	reason := "escalated"
	txParams := repository.AssignTxParams{
		LeadID:        lead.ID,
		FreshLimit:    opts.Snapshot.FreshLeadAssignmentLimit,
		AdvanceCursor: false,
		HaltRotation:  true,
	}
	if opts.ExcludeAgentID != nil {
		txParams.ReleaseReason = &reason
	}

	assignment, err := e.assignments.AssignTx(ctx, txParams, func(uuid.UUID) (uuid.UUID, bool) {
		return *adminID, true
	})
	if errors.Is(err, repository.ErrDuplicateActiveAssignment) {
		return Result{Outcome: OutcomeDiscarded}, nil
	}
	if err != nil {
		return Result{}, err
	}

	e.log.AssignmentEvent(lead.ID.String(), adminID.String(), OutcomeEscalated)
	e.bus.Publish(ctx, events.LeadEscalated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		AdminID:   *adminID,
		Attempts:  lead.AssignmentAttempts,
	})

	return Result{Outcome: OutcomeEscalated, AgentID: *adminID, AssignmentID: assignment.ID}, nil
}

// refreshContactable re-consults the DND registry. Membership never blocks
// ownership; it only suppresses outbound contact.
func (e *Engine) refreshContactable(ctx context.Context, lead leadrepo.Lead) bool {
	blocked, err := e.compliance.IsBlocked(ctx, lead.Phone)
	if err != nil {
		e.log.Warn("dnd lookup failed, keeping current contactable flag", "lead_id", lead.ID, "error", err)
		return lead.Contactable
	}
	contactable := !blocked
	if contactable != lead.Contactable {
		if err := e.leads.SetContactable(ctx, lead.ID, contactable); err != nil {
			e.log.Warn("failed to update contactable flag", "lead_id", lead.ID, "error", err)
		}
	}
	return contactable
}

// Accept records that the agent took ownership of the assignment.
func (e *Engine) Accept(ctx context.Context, leadID, agentID uuid.UUID) error {
	err := e.assignments.Accept(ctx, leadID, agentID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("no active assignment for this lead and agent")
	}
	return err
}

// Reject releases the assignment and returns the lead to the queue.
func (e *Engine) Reject(ctx context.Context, leadID, agentID uuid.UUID) error {
	active, err := e.assignments.GetActive(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("no active assignment for this lead")
	}
	if err != nil {
		return err
	}
	if active.AgentID != agentID {
		return apperr.Forbidden("assignment belongs to another agent")
	}

	if err := e.assignments.Release(ctx, leadID, "rejected"); err != nil {
		return err
	}
	return e.leads.MarkQueued(ctx, leadID)
}

func less(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
