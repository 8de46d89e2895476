package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Sender interface {
	Send(ctx context.Context, phone string, body string) error
}

// WebhookSender posts messages to a WhatsApp gateway webhook. The gateway
// owns the provider session; this side only hands over phone and text.
type WebhookSender struct {
	url    string
	token  string
	client *http.Client
}

func NewWebhookSender(url, token string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type webhookPayload struct {
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

func (s *WebhookSender) Send(ctx context.Context, phone string, body string) error {
	if s.url == "" {
		return fmt.Errorf("whatsapp webhook url not configured")
	}
	if phone == "" {
		return fmt.Errorf("recipient phone empty")
	}

	raw, err := json.Marshal(webhookPayload{Phone: phone, Body: body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp webhook returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender logs instead of sending, for local development.
type NoopSender struct {
	Logger *slog.Logger
}

func (s *NoopSender) Send(_ context.Context, phone string, _ string) error {
	s.Logger.Info("whatsapp send skipped, no webhook configured", "phone", phone)
	return nil
}
