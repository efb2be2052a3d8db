package notification

import (
	"context"
	"fmt"

	"crm_rotation_backend/platform/config"

	"github.com/wneessen/go-mail"
)

// EmailSender delivers over SMTP.
type EmailSender struct {
	client      *mail.Client
	fromName    string
	fromAddress string
}

// NewEmailSender builds the SMTP sender from config.
func NewEmailSender(cfg config.EmailConfig) (*EmailSender, error) {
	client, err := mail.NewClient(cfg.GetSMTPHost(),
		mail.WithPort(cfg.GetSMTPPort()),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.GetSMTPUsername()),
		mail.WithPassword(cfg.GetSMTPPassword()),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &EmailSender{
		client:      client,
		fromName:    cfg.GetEmailFromName(),
		fromAddress: cfg.GetEmailFromAddress(),
	}, nil
}

// Send delivers one email.
func (s *EmailSender) Send(ctx context.Context, recipient, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromAddress); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

var _ Sender = (*EmailSender)(nil)
