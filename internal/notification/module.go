package notification

import (
	agentrepo "crm_rotation_backend/internal/agents/repository"
	"crm_rotation_backend/internal/events"
	"crm_rotation_backend/platform/config"
	"crm_rotation_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
)

// Module owns the outbound boundary. It has no HTTP surface; it lives off
// event subscriptions in both binaries.
type Module struct {
	dispatcher *Dispatcher
	notifier   *Notifier
}

// NewModule builds the channel senders from config and subscribes the
// notifier. Channels without configuration are absent; a dispatch to an
// absent channel fails loudly rather than silently dropping.
func NewModule(cfg config.NotificationConfig, pool *pgxpool.Pool, compliance ComplianceChecker, loader PolicyLoader, bus events.Bus, log *logger.Logger) (*Module, error) {
	senders := make(map[string]Sender)

	if cfg.GetEmailEnabled() {
		email, err := NewEmailSender(cfg)
		if err != nil {
			return nil, err
		}
		senders[ChannelEmail] = email
	}
	if cfg.GetWhatsAppURL() != "" {
		senders[ChannelWhatsApp] = NewWhatsAppSender(cfg)
	}
	if cfg.GetSMSGatewayURL() != "" {
		senders[ChannelSMS] = NewSMSSender(cfg)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.GetOutboundRatePerSecond()), cfg.GetOutboundBurst())
	dispatcher := NewDispatcher(senders, limiter, compliance, loader, log)
	notifier := NewNotifier(dispatcher, agentrepo.New(pool), bus, log)

	return &Module{dispatcher: dispatcher, notifier: notifier}, nil
}

// Dispatcher exposes the outbound boundary for direct sends.
func (m *Module) Dispatcher() *Dispatcher {
	return m.dispatcher
}
