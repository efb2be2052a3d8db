package notification

import (
	"context"
	"testing"
	"time"

	"crm_rotation_backend/internal/policy"
	"crm_rotation_backend/platform/logger"

	"golang.org/x/time/rate"
)

type countingSender struct{ sent []string }

func (c *countingSender) Send(_ context.Context, recipient, _, _ string) error {
	c.sent = append(c.sent, recipient)
	return nil
}

type fakeCompliance struct{ blocked map[string]bool }

func (f fakeCompliance) IsBlocked(_ context.Context, phone string) (bool, error) {
	return f.blocked[phone], nil
}

type fakeLoader struct{ snap policy.Snapshot }

func (f fakeLoader) Load(context.Context) (policy.Snapshot, error) { return f.snap, nil }

func openWindow() policy.Snapshot {
	// Window spans the whole day so the test never depends on wall clock.
	return policy.Snapshot{WorkingHoursStart: 0, WorkingHoursEnd: 0}
}

func newDispatcher(sender Sender, comp ComplianceChecker, snap policy.Snapshot) *Dispatcher {
	senders := map[string]Sender{ChannelWhatsApp: sender, ChannelEmail: sender}
	limiter := rate.NewLimiter(rate.Inf, 1)
	return NewDispatcher(senders, limiter, comp, fakeLoader{snap: snap}, logger.New("development"))
}

func TestDispatchAgentNoticeAlwaysSends(t *testing.T) {
	sender := &countingSender{}
	comp := fakeCompliance{blocked: map[string]bool{"agent@example.com": true}}
	d := newDispatcher(sender, comp, openWindow())

	err := d.Dispatch(context.Background(), Message{
		Channel: ChannelEmail, Recipient: "agent@example.com", Subject: "s", Body: "b",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("agent-facing notice must bypass compliance suppression")
	}
}

func TestDispatchSuppressesDNDListedLead(t *testing.T) {
	sender := &countingSender{}
	comp := fakeCompliance{blocked: map[string]bool{"+919876543210": true}}
	d := newDispatcher(sender, comp, openWindow())

	err := d.Dispatch(context.Background(), Message{
		Channel: ChannelWhatsApp, Recipient: "+919876543210", Body: "b", LeadFacing: true,
	})
	if err != nil {
		t.Fatalf("suppression must not be an error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("DND-listed lead must not be contacted")
	}
}

func TestDispatchSuppressesOutsideWorkingHours(t *testing.T) {
	sender := &countingSender{}
	snap := policy.Snapshot{WorkingHoursStart: 9 * 60, WorkingHoursEnd: 21 * 60}
	d := newDispatcher(sender, fakeCompliance{}, snap)
	d.now = func() time.Time {
		return time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	}

	err := d.Dispatch(context.Background(), Message{
		Channel: ChannelWhatsApp, Recipient: "+919876543210", Body: "b", LeadFacing: true,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("lead-facing send outside working hours must be suppressed")
	}

	d.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	if err := d.Dispatch(context.Background(), Message{
		Channel: ChannelWhatsApp, Recipient: "+919876543210", Body: "b", LeadFacing: true,
	}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("lead-facing send inside working hours must go out")
	}
}

func TestDispatchUnknownChannelFails(t *testing.T) {
	d := newDispatcher(&countingSender{}, fakeCompliance{}, openWindow())

	err := d.Dispatch(context.Background(), Message{Channel: "pigeon", Recipient: "x"})
	if err == nil {
		t.Fatalf("unknown channel must fail loudly")
	}
}
