package service

import (
	"context"
	"sort"
	"testing"

	agentrepo "crm_rotation_backend/internal/agents/repository"
	"crm_rotation_backend/internal/assignment/repository"
	"crm_rotation_backend/internal/events"
	leadrepo "crm_rotation_backend/internal/leads/repository"
	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeadStore struct {
	leads map[uuid.UUID]leadrepo.Lead
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	l, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return l, nil
}

func (f *fakeLeadStore) MarkQueued(_ context.Context, id uuid.UUID) error {
	l := f.leads[id]
	l.Queued = true
	f.leads[id] = l
	return nil
}

func (f *fakeLeadStore) SetContactable(_ context.Context, id uuid.UUID, c bool) error {
	l := f.leads[id]
	l.Contactable = c
	f.leads[id] = l
	return nil
}

type fakeAgentStore struct {
	agents []agentrepo.Agent
}

func (f *fakeAgentStore) ListEligible(_ context.Context, params agentrepo.EligibleParams) ([]agentrepo.Agent, error) {
	out := make([]agentrepo.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		if params.ExcludeID != nil && a.ID == *params.ExcludeID {
			continue
		}
		if params.Territory != nil && (a.Territory == nil || *a.Territory != *params.Territory) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].ID, out[j].ID) })
	return out, nil
}

// fakeAssignStore mimics the repository transaction: cursor row, one active
// assignment per lead, attempt counters on the lead store.
type fakeAssignStore struct {
	leads          *fakeLeadStore
	cursor         uuid.UUID
	active         map[uuid.UUID]repository.Assignment // by lead id
	advances       int
	forceDuplicate bool
}

func newFakeAssignStore(leads *fakeLeadStore) *fakeAssignStore {
	return &fakeAssignStore{leads: leads, active: make(map[uuid.UUID]repository.Assignment)}
}

func (f *fakeAssignStore) AssignTx(_ context.Context, params repository.AssignTxParams, pick func(uuid.UUID) (uuid.UUID, bool)) (repository.Assignment, error) {
	agentID, ok := pick(f.cursor)
	if !ok {
		return repository.Assignment{}, repository.ErrNoCandidate
	}

	if params.ReleaseReason != nil {
		delete(f.active, params.LeadID)
	}
	if _, exists := f.active[params.LeadID]; exists || f.forceDuplicate {
		return repository.Assignment{}, repository.ErrDuplicateActiveAssignment
	}

	a := repository.Assignment{
		ID:      uuid.New(),
		LeadID:  params.LeadID,
		AgentID: agentID,
		Active:  true,
	}
	f.active[params.LeadID] = a

	l := f.leads.leads[params.LeadID]
	l.AssignmentAttempts++
	l.Queued = false
	l.IsFresh = l.AssignmentAttempts < params.FreshLimit
	l.RotationHalted = params.HaltRotation
	f.leads.leads[params.LeadID] = l

	if params.AdvanceCursor {
		f.cursor = agentID
		f.advances++
	}
	return a, nil
}

func (f *fakeAssignStore) Accept(_ context.Context, leadID, agentID uuid.UUID) error {
	a, ok := f.active[leadID]
	if !ok || a.AgentID != agentID {
		return repository.ErrNotFound
	}
	a.IsAccepted = true
	f.active[leadID] = a
	return nil
}

func (f *fakeAssignStore) Release(_ context.Context, leadID uuid.UUID, _ string) error {
	if _, ok := f.active[leadID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.active, leadID)
	return nil
}

func (f *fakeAssignStore) ActiveCounts(_ context.Context) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	for _, a := range f.active {
		counts[a.AgentID]++
	}
	return counts, nil
}

func (f *fakeAssignStore) GetActive(_ context.Context, leadID uuid.UUID) (repository.Assignment, error) {
	a, ok := f.active[leadID]
	if !ok {
		return repository.Assignment{}, repository.ErrNotFound
	}
	return a, nil
}

type nopCompliance struct{ blocked map[string]bool }

func (n nopCompliance) IsBlocked(_ context.Context, phone string) (bool, error) {
	return n.blocked[phone], nil
}

type recordingBus struct{ published []events.Event }

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	engine  *Engine
	leads   *fakeLeadStore
	agents  *fakeAgentStore
	assigns *fakeAssignStore
	bus     *recordingBus
}

func newFixture(agentCount int) *fixture {
	leads := &fakeLeadStore{leads: make(map[uuid.UUID]leadrepo.Lead)}
	agents := &fakeAgentStore{}
	for i := 0; i < agentCount; i++ {
		agents.agents = append(agents.agents, agentrepo.Agent{ID: uuid.New(), IsActive: true})
	}
	assigns := newFakeAssignStore(leads)
	bus := &recordingBus{}
	engine := NewEngine(leads, agents, assigns, nopCompliance{}, bus, logger.New("development"))
	return &fixture{engine: engine, leads: leads, agents: agents, assigns: assigns, bus: bus}
}

func (f *fixture) addLead(attempts int) uuid.UUID {
	id := uuid.New()
	f.leads.leads[id] = leadrepo.Lead{
		ID: id, Name: "lead", Phone: "+919800000000",
		AssignmentAttempts: attempts, Queued: true, IsFresh: true, Contactable: true,
	}
	return id
}

func basePolicy() policy.Snapshot {
	return policy.Snapshot{
		AutoLeadDistribution:     true,
		AssignmentStrategy:       policy.StrategyRoundRobin,
		FreshLeadAssignmentLimit: 3,
		MaxAssignmentAttempts:    5,
	}
}

func TestAssignSkippedWhenDistributionDisabled(t *testing.T) {
	f := newFixture(2)
	leadID := f.addLead(0)

	snap := basePolicy()
	snap.AutoLeadDistribution = false

	res, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: snap})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if res.Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", res.Outcome)
	}
	if len(f.assigns.active) != 0 {
		t.Fatalf("no assignment must be written when distribution is off")
	}
}

func TestAssignQueuedWhenNoEligibleAgent(t *testing.T) {
	f := newFixture(0)
	leadID := f.addLead(0)

	res, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: basePolicy()})
	if err != nil {
		t.Fatalf("no eligible agent must not be an error: %v", err)
	}
	if res.Outcome != OutcomeQueued {
		t.Fatalf("expected queued, got %s", res.Outcome)
	}
	if len(f.assigns.active) != 0 {
		t.Fatalf("no assignment row may exist")
	}
	if !f.leads.leads[leadID].Queued {
		t.Fatalf("lead must stay queued")
	}
}

func TestRoundRobinFairness(t *testing.T) {
	const agents = 3
	const leads = 10

	f := newFixture(agents)
	perAgent := make(map[uuid.UUID]int)

	for i := 0; i < leads; i++ {
		leadID := f.addLead(0)
		res, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: basePolicy()})
		if err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
		if res.Outcome != OutcomeAssigned {
			t.Fatalf("assign %d: expected assigned, got %s", i, res.Outcome)
		}
		perAgent[res.AgentID]++
	}

	lo, hi := leads/agents, (leads+agents-1)/agents
	if len(perAgent) != agents {
		t.Fatalf("every agent must receive leads, got %d of %d", len(perAgent), agents)
	}
	for id, n := range perAgent {
		if n < lo || n > hi {
			t.Fatalf("agent %s got %d leads, want between %d and %d", id, n, lo, hi)
		}
	}
}

func TestConcurrentDuplicateIsDiscarded(t *testing.T) {
	f := newFixture(2)
	leadID := f.addLead(0)
	f.assigns.forceDuplicate = true

	res, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: basePolicy()})
	if err != nil {
		t.Fatalf("losing writer must discard, not error: %v", err)
	}
	if res.Outcome != OutcomeDiscarded {
		t.Fatalf("expected discarded, got %s", res.Outcome)
	}
	if f.assigns.advances != 0 {
		t.Fatalf("cursor must not advance on a discarded write")
	}
	if len(f.bus.published) != 0 {
		t.Fatalf("no event may be published for a discarded write")
	}
}

func TestCapacityExcludesFullAgents(t *testing.T) {
	f := newFixture(2)
	snap := basePolicy()
	snap.MaxLeadsPerAgent = 1

	first, err := f.engine.AssignLead(context.Background(), f.addLead(0), AssignOptions{Snapshot: snap})
	if err != nil || first.Outcome != OutcomeAssigned {
		t.Fatalf("first assign: %v %s", err, first.Outcome)
	}
	second, err := f.engine.AssignLead(context.Background(), f.addLead(0), AssignOptions{Snapshot: snap})
	if err != nil || second.Outcome != OutcomeAssigned {
		t.Fatalf("second assign: %v %s", err, second.Outcome)
	}
	if first.AgentID == second.AgentID {
		t.Fatalf("full agent must be skipped")
	}

	third, err := f.engine.AssignLead(context.Background(), f.addLead(0), AssignOptions{Snapshot: snap})
	if err != nil {
		t.Fatalf("third assign: %v", err)
	}
	if third.Outcome != OutcomeQueued {
		t.Fatalf("expected queued when all agents are at capacity, got %s", third.Outcome)
	}
}

func TestEscalationToFallbackAdmin(t *testing.T) {
	f := newFixture(2)
	adminID := uuid.New()

	snap := basePolicy()
	snap.MaxAssignmentAttempts = 3
	snap.FallbackAdminID = &adminID

	leadID := f.addLead(3)
	res, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: snap})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if res.Outcome != OutcomeEscalated {
		t.Fatalf("expected escalated, got %s", res.Outcome)
	}
	if res.AgentID != adminID {
		t.Fatalf("escalation must go to the fallback admin")
	}
	if f.assigns.advances != 0 {
		t.Fatalf("escalation must not advance the cursor")
	}
	if !f.leads.leads[leadID].RotationHalted {
		t.Fatalf("escalated lead must stop rotating")
	}

	found := false
	for _, e := range f.bus.published {
		if _, ok := e.(events.LeadEscalated); ok {
			found = true
		}
	}
	if !found {
		t.Fatalf("LeadEscalated not published")
	}
}

func TestEscalationWithoutFallbackAdminQueues(t *testing.T) {
	f := newFixture(2)
	snap := basePolicy()
	snap.MaxAssignmentAttempts = 3

	leadID := f.addLead(3)
	res, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: snap})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if res.Outcome != OutcomeQueued {
		t.Fatalf("expected queued without a fallback admin, got %s", res.Outcome)
	}
}

func TestDNDNumberStillGetsOwner(t *testing.T) {
	leads := &fakeLeadStore{leads: make(map[uuid.UUID]leadrepo.Lead)}
	agents := &fakeAgentStore{agents: []agentrepo.Agent{{ID: uuid.New(), IsActive: true}}}
	assigns := newFakeAssignStore(leads)
	bus := &recordingBus{}
	comp := nopCompliance{blocked: map[string]bool{"+919800000000": true}}
	engine := NewEngine(leads, agents, assigns, comp, bus, logger.New("development"))

	leadID := uuid.New()
	leads.leads[leadID] = leadrepo.Lead{
		ID: leadID, Phone: "+919800000000", Queued: true, IsFresh: true, Contactable: true,
	}

	res, err := engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: basePolicy()})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if res.Outcome != OutcomeAssigned {
		t.Fatalf("DND must not block ownership, got %s", res.Outcome)
	}
	if leads.leads[leadID].Contactable {
		t.Fatalf("DND number must be marked non-contactable")
	}

	assigned, ok := bus.published[0].(events.LeadAssigned)
	if !ok {
		t.Fatalf("expected LeadAssigned, got %T", bus.published[0])
	}
	if assigned.Contactable {
		t.Fatalf("event must carry contactable=false")
	}
}

func TestReassignmentExcludesCurrentOwner(t *testing.T) {
	f := newFixture(2)
	leadID := f.addLead(0)

	first, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: basePolicy()})
	if err != nil || first.Outcome != OutcomeAssigned {
		t.Fatalf("first assign: %v %s", err, first.Outcome)
	}

	second, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{
		Snapshot:       basePolicy(),
		ExcludeAgentID: &first.AgentID,
		ReleaseReason:  "no_activity",
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if second.Outcome != OutcomeReassigned {
		t.Fatalf("expected reassigned, got %s", second.Outcome)
	}
	if second.AgentID == first.AgentID {
		t.Fatalf("reassignment must exclude the current owner")
	}
}

func TestRotationWithoutReplacementKeepsOwner(t *testing.T) {
	f := newFixture(1)
	leadID := f.addLead(0)

	first, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: basePolicy()})
	if err != nil || first.Outcome != OutcomeAssigned {
		t.Fatalf("assign: %v %s", err, first.Outcome)
	}

	// The only agent is the current owner, so rotation has nobody to hand
	// over to.
	res, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{
		Snapshot:       basePolicy(),
		ExcludeAgentID: &first.AgentID,
		ReleaseReason:  "no_activity",
	})
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if res.Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", res.Outcome)
	}

	active, err := f.assigns.GetActive(context.Background(), leadID)
	if err != nil {
		t.Fatalf("assignment must survive a rotation without replacement: %v", err)
	}
	if active.AgentID != first.AgentID {
		t.Fatalf("owner must be unchanged")
	}
	if f.leads.leads[leadID].Queued {
		t.Fatalf("an actively owned lead must not be queued")
	}
}

func TestRejectReleasesAndRequeues(t *testing.T) {
	f := newFixture(1)
	leadID := f.addLead(0)

	res, err := f.engine.AssignLead(context.Background(), leadID, AssignOptions{Snapshot: basePolicy()})
	if err != nil || res.Outcome != OutcomeAssigned {
		t.Fatalf("assign: %v %s", err, res.Outcome)
	}

	if err := f.engine.Reject(context.Background(), leadID, res.AgentID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.assigns.GetActive(context.Background(), leadID); err == nil {
		t.Fatalf("assignment must be released on rejection")
	}
	if !f.leads.leads[leadID].Queued {
		t.Fatalf("rejected lead must return to the queue")
	}
}
