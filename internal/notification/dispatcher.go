// Package notification is the outbound boundary: email, SMS and WhatsApp
// sends, rate-limited and filtered by compliance rules.
package notification

import (
	"context"
	"fmt"
	"time"

	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/logger"

	"golang.org/x/time/rate"
)

// Outbound channels.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Message is one outbound send.
type Message struct {
	Channel   string
	Recipient string
	Subject   string
	Body      string

	// LeadFacing sends are suppressed outside working hours and for
	// DND-listed numbers. Agent notices always go out.
	LeadFacing bool
}

// Sender delivers to one channel.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// ComplianceChecker guards lead-facing sends.
type ComplianceChecker interface {
	IsBlocked(ctx context.Context, phone string) (bool, error)
}

// PolicyLoader supplies the working-hours window.
type PolicyLoader interface {
	Load(ctx context.Context) (policy.Snapshot, error)
}

// Dispatcher routes messages to channel senders. All outbound traffic
// shares one rate limiter so a rotation burst cannot flood the gateways.
type Dispatcher struct {
	senders    map[string]Sender
	limiter    *rate.Limiter
	compliance ComplianceChecker
	loader     PolicyLoader
	log        *logger.Logger
	now        func() time.Time
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(senders map[string]Sender, limiter *rate.Limiter, compliance ComplianceChecker, loader PolicyLoader, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		senders:    senders,
		limiter:    limiter,
		compliance: compliance,
		loader:     loader,
		log:        log,
		now:        time.Now,
	}
}

// Dispatch sends one message. A suppressed lead-facing send returns nil;
// suppression is the correct outcome, not a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	sender, ok := d.senders[msg.Channel]
	if !ok {
		return fmt.Errorf("no sender configured for channel %q", msg.Channel)
	}

	if msg.LeadFacing {
		allowed, err := d.leadSendAllowed(ctx, msg)
		if err != nil {
			return err
		}
		if !allowed {
			return nil
		}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	return sender.Send(ctx, msg.Recipient, msg.Subject, msg.Body)
}

func (d *Dispatcher) leadSendAllowed(ctx context.Context, msg Message) (bool, error) {
	blocked, err := d.compliance.IsBlocked(ctx, msg.Recipient)
	if err != nil {
		return false, err
	}
	if blocked {
		d.log.Info("suppressed lead-facing send to dnd-listed number", "channel", msg.Channel)
		return false, nil
	}

	snap, err := d.loader.Load(ctx)
	if err != nil {
		return false, err
	}
	if !snap.WithinWorkingHours(d.now()) {
		d.log.Info("suppressed lead-facing send outside working hours", "channel", msg.Channel)
		return false, nil
	}
	return true, nil
}
