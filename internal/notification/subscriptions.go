package notification

import (
	"context"
	"fmt"

	agentrepo "crm_rotation_backend/internal/agents/repository"
	"crm_rotation_backend/internal/events"
	"crm_rotation_backend/platform/logger"

	"github.com/google/uuid"
)

// AgentDirectory resolves agent contact details for notices.
type AgentDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (agentrepo.Agent, error)
}

// Notifier turns domain events into outbound messages.
type Notifier struct {
	dispatcher *Dispatcher
	agents     AgentDirectory
	log        *logger.Logger
}

// NewNotifier creates a notifier and subscribes it to the engine events.
func NewNotifier(dispatcher *Dispatcher, agents AgentDirectory, bus events.Bus, log *logger.Logger) *Notifier {
	n := &Notifier{dispatcher: dispatcher, agents: agents, log: log}

	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(n.onLeadAssigned))
	bus.Subscribe(events.LeadEscalated{}.EventName(), events.HandlerFunc(n.onLeadEscalated))
	bus.Subscribe(events.ReminderDue{}.EventName(), events.HandlerFunc(n.onReminderDue))

	return n
}

func (n *Notifier) onLeadAssigned(ctx context.Context, e events.Event) error {
	assigned, ok := e.(events.LeadAssigned)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	agent, err := n.agents.GetByID(ctx, assigned.AgentID)
	if err != nil {
		return fmt.Errorf("resolve assignee contact: %w", err)
	}

	subject := "New lead assigned to you"
	if assigned.Reassigned {
		subject = "Lead reassigned to you"
	}

	return n.dispatcher.Dispatch(ctx, Message{
		Channel:   ChannelEmail,
		Recipient: agent.Email,
		Subject:   subject,
		Body:      fmt.Sprintf("Lead %q is now yours. Open the CRM to accept it.", assigned.LeadName),
	})
}

func (n *Notifier) onLeadEscalated(ctx context.Context, e events.Event) error {
	escalated, ok := e.(events.LeadEscalated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	admin, err := n.agents.GetByID(ctx, escalated.AdminID)
	if err != nil {
		return fmt.Errorf("resolve fallback admin contact: %w", err)
	}

	return n.dispatcher.Dispatch(ctx, Message{
		Channel:   ChannelEmail,
		Recipient: admin.Email,
		Subject:   "Lead escalated for manual review",
		Body: fmt.Sprintf("Lead %q exhausted %d assignment attempts and needs manual handling.",
			escalated.LeadName, escalated.Attempts),
	})
}

func (n *Notifier) onReminderDue(ctx context.Context, e events.Event) error {
	due, ok := e.(events.ReminderDue)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}

	err := n.dispatcher.Dispatch(ctx, Message{
		Channel:   ChannelEmail,
		Recipient: due.AgentEmail,
		Subject:   fmt.Sprintf("Upcoming %s with %s", due.EventType, due.LeadName),
		Body: fmt.Sprintf("Your %s with %s is scheduled for %s.",
			due.EventType, due.LeadName, due.ScheduledAt.Format("Mon 2 Jan 15:04")),
	})
	if err != nil {
		return err
	}

	// The lead gets a courtesy note on the lead-facing channel; the
	// dispatcher drops it when the number is DND-listed or the working
	// hours window is closed.
	if !due.Contactable {
		return nil
	}
	return n.dispatcher.Dispatch(ctx, Message{
		Channel:    ChannelWhatsApp,
		Recipient:  due.LeadPhone,
		Body:       fmt.Sprintf("Reminder: your %s is scheduled for %s.", due.EventType, due.ScheduledAt.Format("Mon 2 Jan 15:04")),
		LeadFacing: true,
	})
}
