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

// SMSSender posts messages to the SMS gateway.
type SMSSender struct {
	url      string
	apiKey   string
	senderID string
	client   *http.Client
}

// NewSMSSender builds the gateway client from config.
func NewSMSSender(cfg config.SMSConfig) *SMSSender {
	return &SMSSender{
		url:      cfg.GetSMSGatewayURL(),
		apiKey:   cfg.GetSMSGatewayKey(),
		senderID: cfg.GetSMSSenderID(),
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type smsRequest struct {
	To       string `json:"to"`
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

// Send delivers one SMS. The subject is ignored; SMS has no subject.
func (s *SMSSender) Send(ctx context.Context, recipient, _ string, body string) error {
	payload, err := json.Marshal(smsRequest{To: recipient, SenderID: s.senderID, Message: body})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

var _ Sender = (*SMSSender)(nil)
