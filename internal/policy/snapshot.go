// Package policy provides the engine's runtime configuration: typed access
// to the engine_settings table and the status rotation rule table.
//
// Sweeps receive an immutable Snapshot per tick. A snapshot is never
// refreshed mid-sweep; the next tick loads a fresh one.
package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"crm_rotation_backend/internal/policy/repository"

	"github.com/google/uuid"
)

// Strategy values for lead_assignment_strategy.
const (
	StrategyRoundRobin = "round_robin"
	StrategyTerritory  = "territory"
)

// StatusRotationRule is the parsed form of one status rotation table row.
type StatusRotationRule struct {
	StatusID       int
	Interval       time.Duration
	MaxAge         time.Duration
	MaxAssignments int
	Enabled        bool
}

// TimeOfDay is minutes since midnight, parsed from "HH:MM" settings.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Snapshot holds the parsed value of every engine setting. A missing or
// malformed key resolves to its zero value, which every consumer treats as
// "feature disabled".
type Snapshot struct {
	AutoLeadDistribution       bool
	AssignmentStrategy         string
	DistributionInterval       time.Duration
	MaxLeadsPerAgent           int
	FreshLeadAssignmentLimit   int
	MaxAssignmentAttempts      int
	FallbackAdminID            *uuid.UUID
	NoActivityTimeout          time.Duration
	NoActivityRotationInterval time.Duration
	FreshLeadSweepEnabled      bool
	DumpToColdCallDays         int
	DNDSweepEnabled            bool
	CallReminderLead           time.Duration
	MeetingReminderLead        time.Duration
	ReminderSweepInterval      time.Duration
	WorkingHoursStart          TimeOfDay
	WorkingHoursEnd            TimeOfDay
	StatusRules                []StatusRotationRule

	LoadedAt time.Time
}

// WithinWorkingHours reports whether t falls inside the configured contact
// window. An unset window (zero start and end) means no restriction.
func (s Snapshot) WithinWorkingHours(t time.Time) bool {
	if s.WorkingHoursStart == 0 && s.WorkingHoursEnd == 0 {
		return true
	}
	minutes := TimeOfDay(t.Hour()*60 + t.Minute())
	return minutes >= s.WorkingHoursStart && minutes < s.WorkingHoursEnd
}

// RuleFor returns the enabled rotation rule for a status, if any.
func (s Snapshot) RuleFor(statusID int) (StatusRotationRule, bool) {
	for _, rule := range s.StatusRules {
		if rule.StatusID == statusID && rule.Enabled {
			return rule, true
		}
	}
	return StatusRotationRule{}, false
}

// InvalidKeyFunc is called for every malformed setting encountered while
// building a snapshot, so the caller can log it. The feature behind the key
// is disabled for the life of the snapshot.
type InvalidKeyFunc func(key, value string, err error)

// BuildSnapshot parses raw settings and rules into a Snapshot.
func BuildSnapshot(settings []repository.Setting, rules []repository.StatusRotationRule, now time.Time, onInvalid InvalidKeyFunc) Snapshot {
	byKey := make(map[string]string, len(settings))
	for _, s := range settings {
		byKey[s.Key] = s.Value
	}

	report := func(key, value string, err error) {
		if onInvalid != nil {
			onInvalid(key, value, err)
		}
	}

	parseBool := func(key string) bool {
		raw, ok := byKey[key]
		if !ok {
			return false
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			report(key, raw, err)
			return false
		}
		return v
	}

	parseNonNegativeInt := func(key string) int {
		raw, ok := byKey[key]
		if !ok {
			return 0
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			if err == nil {
				err = fmt.Errorf("negative value")
			}
			report(key, raw, err)
			return 0
		}
		return v
	}

	parseMinutes := func(key string) time.Duration {
		return time.Duration(parseNonNegativeInt(key)) * time.Minute
	}

	parseTime := func(key string) TimeOfDay {
		raw, ok := byKey[key]
		if !ok {
			return 0
		}
		v, err := ParseTimeOfDay(raw)
		if err != nil {
			report(key, raw, err)
			return 0
		}
		return v
	}

	snap := Snapshot{
		AutoLeadDistribution:       parseBool(KeyAutoLeadDistribution),
		DistributionInterval:       parseMinutes(KeyLeadDistributionInterval),
		MaxLeadsPerAgent:           parseNonNegativeInt(KeyMaxLeadsPerAgent),
		FreshLeadAssignmentLimit:   parseNonNegativeInt(KeyFreshLeadAssignmentLimit),
		MaxAssignmentAttempts:      parseNonNegativeInt(KeyMaxAssignmentAttempts),
		NoActivityTimeout:          parseMinutes(KeyNoActivityTime),
		NoActivityRotationInterval: parseMinutes(KeyNoActivityRotationInterval),
		FreshLeadSweepEnabled:      parseBool(KeyFreshLeadSweepEnabled),
		DumpToColdCallDays:         parseNonNegativeInt(KeyDumpToColdCallDays),
		DNDSweepEnabled:            parseBool(KeyDNDSweepEnabled),
		CallReminderLead:           parseMinutes(KeyCallReminderMinutes),
		MeetingReminderLead:        parseMinutes(KeyMeetingReminderMinutes),
		ReminderSweepInterval:      time.Duration(parseNonNegativeInt(KeyReminderSweepIntervalSeconds)) * time.Second,
		WorkingHoursStart:          parseTime(KeyWorkingHoursStart),
		WorkingHoursEnd:            parseTime(KeyWorkingHoursEnd),
		LoadedAt:                   now,
	}

	strategy := byKey[KeyLeadAssignmentStrategy]
	switch strategy {
	case StrategyRoundRobin, StrategyTerritory:
		snap.AssignmentStrategy = strategy
	case "":
		snap.AssignmentStrategy = StrategyRoundRobin
	default:
		report(KeyLeadAssignmentStrategy, strategy, fmt.Errorf("unknown strategy"))
		snap.AssignmentStrategy = StrategyRoundRobin
	}

	if raw := strings.TrimSpace(byKey[KeyFallbackAdminID]); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			report(KeyFallbackAdminID, raw, err)
		} else {
			snap.FallbackAdminID = &id
		}
	}

	snap.StatusRules = make([]StatusRotationRule, 0, len(rules))
	for _, r := range rules {
		if r.IntervalMinutes < 0 || r.MaxAgeMinutes < 0 || r.MaxAssignments < 0 {
			report("status_rotation_rule", strconv.Itoa(r.StatusID), fmt.Errorf("negative rule value"))
			continue
		}
		snap.StatusRules = append(snap.StatusRules, StatusRotationRule{
			StatusID:       r.StatusID,
			Interval:       time.Duration(r.IntervalMinutes) * time.Minute,
			MaxAge:         time.Duration(r.MaxAgeMinutes) * time.Minute,
			MaxAssignments: r.MaxAssignments,
			Enabled:        r.Enabled,
		})
	}

	return snap
}
