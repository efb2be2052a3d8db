package policy

import (
	"testing"
	"time"

	"crm_rotation_backend/internal/policy/repository"
)

func settings(pairs map[string]string) []repository.Setting {
	out := make([]repository.Setting, 0, len(pairs))
	for k, v := range pairs {
		out = append(out, repository.Setting{Key: k, Value: v})
	}
	return out
}

func TestBuildSnapshot_ParsesSeededValues(t *testing.T) {
	snap := BuildSnapshot(settings(map[string]string{
		KeyAutoLeadDistribution:       "true",
		KeyLeadAssignmentStrategy:     "territory",
		KeyMaxLeadsPerAgent:           "25",
		KeyNoActivityTime:             "120",
		KeyNoActivityRotationInterval: "15",
		KeyWorkingHoursStart:          "09:00",
		KeyWorkingHoursEnd:            "21:00",
	}), nil, time.Now(), nil)

	if !snap.AutoLeadDistribution {
		t.Fatalf("expected auto distribution enabled")
	}
	if snap.AssignmentStrategy != StrategyTerritory {
		t.Fatalf("expected territory strategy, got %q", snap.AssignmentStrategy)
	}
	if snap.MaxLeadsPerAgent != 25 {
		t.Fatalf("expected max 25 leads per agent, got %d", snap.MaxLeadsPerAgent)
	}
	if snap.NoActivityTimeout != 2*time.Hour {
		t.Fatalf("expected 2h no-activity timeout, got %s", snap.NoActivityTimeout)
	}
	if snap.NoActivityRotationInterval != 15*time.Minute {
		t.Fatalf("expected 15m rotation interval, got %s", snap.NoActivityRotationInterval)
	}
}

func TestBuildSnapshot_MalformedValueDisablesFeature(t *testing.T) {
	var reported []string
	snap := BuildSnapshot(settings(map[string]string{
		KeyAutoLeadDistribution: "yes please",
		KeyNoActivityTime:       "-5",
		KeyWorkingHoursStart:    "25:99",
	}), nil, time.Now(), func(key, value string, err error) {
		reported = append(reported, key)
	})

	if snap.AutoLeadDistribution {
		t.Fatalf("malformed bool must disable the feature")
	}
	if snap.NoActivityTimeout != 0 {
		t.Fatalf("negative interval must disable the sweep, got %s", snap.NoActivityTimeout)
	}
	if snap.WorkingHoursStart != 0 {
		t.Fatalf("malformed time must resolve to zero")
	}
	if len(reported) != 3 {
		t.Fatalf("expected 3 invalid keys reported, got %d (%v)", len(reported), reported)
	}
}

func TestBuildSnapshot_MissingKeysAreSilent(t *testing.T) {
	called := false
	snap := BuildSnapshot(nil, nil, time.Now(), func(key, value string, err error) {
		called = true
	})

	if called {
		t.Fatalf("missing keys are defaults, not errors")
	}
	if snap.AssignmentStrategy != StrategyRoundRobin {
		t.Fatalf("expected round_robin default strategy, got %q", snap.AssignmentStrategy)
	}
}

func TestBuildSnapshot_UnknownStrategyFallsBack(t *testing.T) {
	reported := 0
	snap := BuildSnapshot(settings(map[string]string{
		KeyLeadAssignmentStrategy: "coin_flip",
	}), nil, time.Now(), func(string, string, error) { reported++ })

	if snap.AssignmentStrategy != StrategyRoundRobin {
		t.Fatalf("unknown strategy must fall back to round_robin, got %q", snap.AssignmentStrategy)
	}
	if reported != 1 {
		t.Fatalf("expected unknown strategy to be reported")
	}
}

func TestBuildSnapshot_StatusRules(t *testing.T) {
	rules := []repository.StatusRotationRule{
		{StatusID: 40, IntervalMinutes: 30, MaxAgeMinutes: 240, MaxAssignments: 5, Enabled: true},
		{StatusID: 50, IntervalMinutes: 60, MaxAgeMinutes: 1440, MaxAssignments: 3, Enabled: false},
	}
	snap := BuildSnapshot(nil, rules, time.Now(), nil)

	rule, ok := snap.RuleFor(40)
	if !ok {
		t.Fatalf("expected enabled rule for status 40")
	}
	if rule.MaxAge != 4*time.Hour || rule.MaxAssignments != 5 {
		t.Fatalf("unexpected rule: %+v", rule)
	}

	if _, ok := snap.RuleFor(50); ok {
		t.Fatalf("disabled rule must not be returned")
	}
	if _, ok := snap.RuleFor(99); ok {
		t.Fatalf("unconfigured status must not have a rule")
	}
}

func TestWithinWorkingHours(t *testing.T) {
	snap := Snapshot{WorkingHoursStart: 9 * 60, WorkingHoursEnd: 21 * 60}

	at := func(hour int) time.Time {
		return time.Date(2024, 6, 1, hour, 0, 0, 0, time.UTC)
	}

	if snap.WithinWorkingHours(at(8)) {
		t.Fatalf("08:00 is outside the window")
	}
	if !snap.WithinWorkingHours(at(9)) {
		t.Fatalf("09:00 is inside the window")
	}
	if snap.WithinWorkingHours(at(21)) {
		t.Fatalf("21:00 is outside the window")
	}

	unset := Snapshot{}
	if !unset.WithinWorkingHours(at(3)) {
		t.Fatalf("an unset window means no restriction")
	}
}
