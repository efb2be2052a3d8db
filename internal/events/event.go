package events

import (
	"time"

	"github.com/google/uuid"
)

// LeadCreated is published by lead intake. When auto distribution is on the
// assignment engine reacts to it.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID
	Phone       string
	Source      string
	Territory   *string
	Contactable bool
}

func (LeadCreated) EventName() string { return "leads.created" }

// LeadAssigned is published after an assignment transaction commits.
type LeadAssigned struct {
	BaseEvent
	LeadID       uuid.UUID
	LeadName     string
	AgentID      uuid.UUID
	AssignmentID uuid.UUID
	Reassigned   bool
	Contactable  bool
}

func (LeadAssigned) EventName() string { return "leads.assigned" }

// LeadEscalated is published when a lead exhausts its assignment attempts
// and is handed to the fallback admin.
type LeadEscalated struct {
	BaseEvent
	LeadID   uuid.UUID
	LeadName string
	AdminID  uuid.UUID
	Attempts int
}

func (LeadEscalated) EventName() string { return "leads.escalated" }

// LeadConverted is published when a lead reaches Deal Won. The commission
// module resolves and records the applicable slab percentage.
type LeadConverted struct {
	BaseEvent
	LeadID          uuid.UUID
	AgentID         uuid.UUID
	DealValue       int64
	DesignationTier *int
}

func (LeadConverted) EventName() string { return "leads.converted" }

// ReminderDue is published by the reminder worker when a scheduled call or
// meeting reaches its configured lead time.
type ReminderDue struct {
	BaseEvent
	EventID     uuid.UUID
	EventType   string
	LeadID      uuid.UUID
	LeadName    string
	LeadPhone   string
	AgentID     uuid.UUID
	AgentEmail  string
	AgentPhone  string
	ScheduledAt time.Time
	Contactable bool
}

func (ReminderDue) EventName() string { return "reminders.due" }
