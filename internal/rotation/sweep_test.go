package rotation

import (
	"context"
	"testing"
	"time"

	assignrepo "crm_rotation_backend/internal/assignment/repository"
	assignsvc "crm_rotation_backend/internal/assignment/service"
	leadrepo "crm_rotation_backend/internal/leads/repository"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeAssigner reassigns unconditionally and refreshes the fake state's
// activity timestamps, mirroring what a real reassignment commit does.
type fakeAssigner struct {
	state *fakeState
	calls []uuid.UUID
}

func (f *fakeAssigner) AssignLead(_ context.Context, leadID uuid.UUID, opts assignsvc.AssignOptions) (assignsvc.Result, error) {
	f.calls = append(f.calls, leadID)
	f.state.touch(leadID)
	outcome := assignsvc.OutcomeAssigned
	if opts.ExcludeAgentID != nil {
		outcome = assignsvc.OutcomeReassigned
	}
	return assignsvc.Result{Outcome: outcome, AgentID: uuid.New()}, nil
}

// fakeState backs the lister interfaces with timestamped rows.
type fakeState struct {
	now        time.Time
	activity   map[uuid.UUID]time.Time // active assignment activity per lead
	owner      map[uuid.UUID]uuid.UUID
	statusAt   map[uuid.UUID]time.Time
	statusOf   map[uuid.UUID]int
	attemptsOf map[uuid.UUID]int
}

func newFakeState(now time.Time) *fakeState {
	return &fakeState{
		now:        now,
		activity:   make(map[uuid.UUID]time.Time),
		owner:      make(map[uuid.UUID]uuid.UUID),
		statusAt:   make(map[uuid.UUID]time.Time),
		statusOf:   make(map[uuid.UUID]int),
		attemptsOf: make(map[uuid.UUID]int),
	}
}

func (s *fakeState) touch(leadID uuid.UUID) {
	s.activity[leadID] = s.now
	s.statusAt[leadID] = s.now
}

func (s *fakeState) ListStale(_ context.Context, before time.Time, _ int) ([]assignrepo.StaleAssignment, error) {
	items := make([]assignrepo.StaleAssignment, 0)
	for leadID, at := range s.activity {
		if at.Before(before) {
			items = append(items, assignrepo.StaleAssignment{
				LeadID:   leadID,
				AgentID:  s.owner[leadID],
				Attempts: s.attemptsOf[leadID],
			})
		}
	}
	return items, nil
}

func (s *fakeState) ListStatusStuck(_ context.Context, statusID int, changedBefore time.Time, maxAssignments, _ int) ([]leadrepo.StuckLead, error) {
	items := make([]leadrepo.StuckLead, 0)
	for leadID, at := range s.statusAt {
		if s.statusOf[leadID] != statusID {
			continue
		}
		if !at.Before(changedBefore) {
			continue
		}
		if s.attemptsOf[leadID] >= maxAssignments {
			continue
		}
		items = append(items, leadrepo.StuckLead{
			LeadID:   leadID,
			AgentID:  s.owner[leadID],
			Attempts: s.attemptsOf[leadID],
		})
	}
	return items, nil
}

func testSnapshot() policy.Snapshot {
	return policy.Snapshot{
		AutoLeadDistribution:     true,
		AssignmentStrategy:       policy.StrategyRoundRobin,
		FreshLeadAssignmentLimit: 3,
		MaxAssignmentAttempts:    5,
		NoActivityTimeout:        30 * time.Minute,
	}
}

func TestNoActivitySweepRotatesStaleThenIdles(t *testing.T) {
	now := time.Now()
	state := newFakeState(now)
	assigner := &fakeAssigner{state: state}
	sweep := NewNoActivitySweep(state, assigner, logger.New("development"))

	staleLead := uuid.New()
	state.activity[staleLead] = now.Add(-time.Hour)
	state.owner[staleLead] = uuid.New()

	activeLead := uuid.New()
	state.activity[activeLead] = now.Add(-5 * time.Minute)
	state.owner[activeLead] = uuid.New()

	res, err := sweep.Run(context.Background(), now, testSnapshot())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Reassigned != 1 {
		t.Fatalf("expected 1 reassignment, got %d", res.Reassigned)
	}
	if len(assigner.calls) != 1 || assigner.calls[0] != staleLead {
		t.Fatalf("only the stale lead may rotate")
	}

	// Second back-to-back run: the rotation refreshed the timestamp, so
	// nothing is stale anymore.
	res, err = sweep.Run(context.Background(), now, testSnapshot())
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if res.Reassigned != 0 {
		t.Fatalf("immediate re-run must rotate nothing, got %d", res.Reassigned)
	}
}

func TestNoActivitySweepDisabledByZeroTimeout(t *testing.T) {
	now := time.Now()
	state := newFakeState(now)
	assigner := &fakeAssigner{state: state}
	sweep := NewNoActivitySweep(state, assigner, logger.New("development"))

	state.activity[uuid.New()] = now.Add(-24 * time.Hour)

	snap := testSnapshot()
	snap.NoActivityTimeout = 0

	res, err := sweep.Run(context.Background(), now, snap)
	if err != nil || res.Reassigned != 0 || len(assigner.calls) != 0 {
		t.Fatalf("zero timeout must disable the sweep: %+v %v", res, err)
	}
}

func TestStatusSweepHonorsAttemptCeiling(t *testing.T) {
	now := time.Now()
	state := newFakeState(now)
	assigner := &fakeAssigner{state: state}
	sweep := NewStatusRotationSweep(state, assigner, logger.New("development"))

	const noAnswer = 40
	rule := policy.StatusRotationRule{
		StatusID:       noAnswer,
		Interval:       30 * time.Minute,
		MaxAge:         4 * time.Hour,
		MaxAssignments: 5,
		Enabled:        true,
	}
	snap := testSnapshot()
	snap.StatusRules = []policy.StatusRotationRule{rule}

	rotatable := uuid.New()
	state.statusOf[rotatable] = noAnswer
	state.statusAt[rotatable] = now.Add(-5 * time.Hour)
	state.owner[rotatable] = uuid.New()
	state.attemptsOf[rotatable] = 2

	exhausted := uuid.New()
	state.statusOf[exhausted] = noAnswer
	state.statusAt[exhausted] = now.Add(-5 * time.Hour)
	state.owner[exhausted] = uuid.New()
	state.attemptsOf[exhausted] = 5

	res, err := sweep.Run(context.Background(), now, snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Reassigned != 1 {
		t.Fatalf("expected 1 rotation, got %d", res.Reassigned)
	}
	if len(assigner.calls) != 1 || assigner.calls[0] != rotatable {
		t.Fatalf("lead at the attempt ceiling must be left for manual review")
	}
}

func TestStatusSweepRespectsRuleInterval(t *testing.T) {
	now := time.Now()
	state := newFakeState(now)
	assigner := &fakeAssigner{state: state}
	sweep := NewStatusRotationSweep(state, assigner, logger.New("development"))

	snap := testSnapshot()
	snap.StatusRules = []policy.StatusRotationRule{{
		StatusID:       40,
		Interval:       30 * time.Minute,
		MaxAge:         time.Hour,
		MaxAssignments: 5,
		Enabled:        true,
	}}

	lead := uuid.New()
	state.statusOf[lead] = 40
	state.statusAt[lead] = now.Add(-2 * time.Hour)
	state.owner[lead] = uuid.New()

	if _, err := sweep.Run(context.Background(), now, snap); err != nil {
		t.Fatalf("run: %v", err)
	}
	calls := len(assigner.calls)

	// The lead is stale again, but the rule's own check interval has not
	// elapsed since the last pass.
	state.statusAt[lead] = now.Add(-2 * time.Hour)
	if _, err := sweep.Run(context.Background(), now.Add(10*time.Minute), snap); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(assigner.calls) != calls {
		t.Fatalf("rule must not re-fire inside its check interval")
	}

	if _, err := sweep.Run(context.Background(), now.Add(31*time.Minute), snap); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if len(assigner.calls) != calls+1 {
		t.Fatalf("rule must fire again once its interval elapses")
	}
}

type countingFlagger struct{ calls int }

func (c *countingFlagger) MarkUncontactableByDND(context.Context) (int64, error) {
	c.calls++
	return 3, nil
}

func TestDNDSweepGatedByPolicy(t *testing.T) {
	flagger := &countingFlagger{}
	sweep := NewDNDSweep(flagger)

	snap := testSnapshot()
	snap.DNDSweepEnabled = false
	if _, err := sweep.Run(context.Background(), time.Now(), snap); err != nil {
		t.Fatalf("run: %v", err)
	}
	if flagger.calls != 0 {
		t.Fatalf("disabled sweep must not touch storage")
	}

	snap.DNDSweepEnabled = true
	res, err := sweep.Run(context.Background(), time.Now(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if flagger.calls != 1 || res.Updated != 3 {
		t.Fatalf("enabled sweep must flag and report: %+v", res)
	}
	if res.Reassigned != 0 {
		t.Fatalf("flag writes are not reassignments: %+v", res)
	}
}

type countingResetter struct{ calls int }

func (c *countingResetter) ResetFreshFlags(context.Context, int) (int64, error) {
	c.calls++
	return 4, nil
}

func TestFreshLeadSweepReportsFlagUpdates(t *testing.T) {
	resetter := &countingResetter{}
	sweep := NewFreshLeadSweep(resetter)

	snap := testSnapshot()
	snap.FreshLeadSweepEnabled = false
	if _, err := sweep.Run(context.Background(), time.Now(), snap); err != nil {
		t.Fatalf("run: %v", err)
	}
	if resetter.calls != 0 {
		t.Fatalf("disabled sweep must not touch storage")
	}

	snap.FreshLeadSweepEnabled = true
	res, err := sweep.Run(context.Background(), time.Now(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if resetter.calls != 1 || res.Updated != 4 {
		t.Fatalf("enabled sweep must reset and report: %+v", res)
	}
	if res.Reassigned != 0 {
		t.Fatalf("flag writes are not reassignments: %+v", res)
	}
}

type fakeDumpStore struct {
	idle  []leadrepo.Lead
	reset []uuid.UUID
}

func (f *fakeDumpStore) ListDumpIdle(_ context.Context, _ time.Time, _ int) ([]leadrepo.Lead, error) {
	return f.idle, nil
}

func (f *fakeDumpStore) ResetToColdCall(_ context.Context, id uuid.UUID) error {
	f.reset = append(f.reset, id)
	return nil
}

func TestDumpSweepRecyclesIdleLeads(t *testing.T) {
	store := &fakeDumpStore{idle: []leadrepo.Lead{{ID: uuid.New()}, {ID: uuid.New()}}}
	sweep := NewDumpSweep(store, logger.New("development"))

	snap := testSnapshot()
	snap.DumpToColdCallDays = 30

	res, err := sweep.Run(context.Background(), time.Now(), snap)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Updated != 2 || len(store.reset) != 2 {
		t.Fatalf("both idle leads must be recycled: %+v", res)
	}
	if res.Reassigned != 0 {
		t.Fatalf("recycling is not a reassignment: %+v", res)
	}

	snap.DumpToColdCallDays = 0
	store.reset = nil
	if _, err := sweep.Run(context.Background(), time.Now(), snap); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.reset) != 0 {
		t.Fatalf("zero days must disable the sweep")
	}
}

type fakeQueue struct{ leads []leadrepo.Lead }

func (f *fakeQueue) ListQueued(context.Context, int) ([]leadrepo.Lead, error) {
	return f.leads, nil
}

func TestDistributionSweepDrainsQueue(t *testing.T) {
	now := time.Now()
	state := newFakeState(now)
	assigner := &fakeAssigner{state: state}
	queue := &fakeQueue{leads: []leadrepo.Lead{{ID: uuid.New()}, {ID: uuid.New()}}}
	sweep := NewDistributionSweep(queue, assigner, logger.New("development"))

	res, err := sweep.Run(context.Background(), now, testSnapshot())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Reassigned != 2 {
		t.Fatalf("both queued leads must be assigned, got %+v", res)
	}

	snap := testSnapshot()
	snap.AutoLeadDistribution = false
	assigner.calls = nil
	if _, err := sweep.Run(context.Background(), now, snap); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(assigner.calls) != 0 {
		t.Fatalf("distribution off must skip the queue")
	}
}
