package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crm_rotation_backend/platform/config"
)

// WhatsAppSender posts messages to the WhatsApp gateway.
type WhatsAppSender struct {
	url    string
	apiKey string
	client *http.Client
}

// NewWhatsAppSender builds the gateway client from config.
func NewWhatsAppSender(cfg config.WhatsAppConfig) *WhatsAppSender {
	return &WhatsAppSender{
		url:    cfg.GetWhatsAppURL(),
		apiKey: cfg.GetWhatsAppKey(),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type whatsAppRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send delivers one WhatsApp message. The subject is folded into the body;
// the channel has no subject concept.
func (s *WhatsAppSender) Send(ctx context.Context, recipient, subject, body string) error {
	text := body
	if subject != "" {
		text = subject + "\n\n" + body
	}

	payload, err := json.Marshal(whatsAppRequest{Phone: recipient, Message: text})
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

var _ Sender = (*WhatsAppSender)(nil)
