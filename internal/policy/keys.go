package policy

// Engine setting keys. The set is fixed by migration; administrative updates
// change values only.
const (
	KeyAutoLeadDistribution         = "auto_lead_distribution"
	KeyLeadAssignmentStrategy       = "lead_assignment_strategy"
	KeyLeadDistributionInterval     = "lead_distribution_interval_minutes"
	KeyMaxLeadsPerAgent             = "max_leads_per_agent"
	KeyFreshLeadAssignmentLimit     = "fresh_lead_assignment_limit"
	KeyMaxAssignmentAttempts        = "max_assignment_attempts"
	KeyFallbackAdminID              = "fallback_admin_id"
	KeyNoActivityTime               = "no_activity_time_minutes"
	KeyNoActivityRotationInterval   = "no_activity_rotation_interval_minutes"
	KeyFreshLeadSweepEnabled        = "fresh_lead_sweep_enabled"
	KeyDumpToColdCallDays           = "dump_to_cold_call_days"
	KeyDNDSweepEnabled              = "dnd_sweep_enabled"
	KeyCallReminderMinutes          = "call_reminder_minutes"
	KeyMeetingReminderMinutes       = "meeting_reminder_minutes"
	KeyReminderSweepIntervalSeconds = "reminder_sweep_interval_seconds"
	KeyWorkingHoursStart            = "working_hours_start"
	KeyWorkingHoursEnd              = "working_hours_end"
)

type valueKind int

const (
	kindBool valueKind = iota
	kindInt
	kindString
	kindTime
	kindUUID
	kindStrategy
)

// keySpecs drives admin-side validation of setting updates.
var keySpecs = map[string]valueKind{
	KeyAutoLeadDistribution:         kindBool,
	KeyLeadAssignmentStrategy:       kindStrategy,
	KeyLeadDistributionInterval:     kindInt,
	KeyMaxLeadsPerAgent:             kindInt,
	KeyFreshLeadAssignmentLimit:     kindInt,
	KeyMaxAssignmentAttempts:        kindInt,
	KeyFallbackAdminID:              kindUUID,
	KeyNoActivityTime:               kindInt,
	KeyNoActivityRotationInterval:   kindInt,
	KeyFreshLeadSweepEnabled:        kindBool,
	KeyDumpToColdCallDays:           kindInt,
	KeyDNDSweepEnabled:              kindBool,
	KeyCallReminderMinutes:          kindInt,
	KeyMeetingReminderMinutes:       kindInt,
	KeyReminderSweepIntervalSeconds: kindInt,
	KeyWorkingHoursStart:            kindTime,
	KeyWorkingHoursEnd:              kindTime,
}
