package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
	ProviderID() string
}

type SMSWebhookConfig struct {
	URL     string
	Token   string
	Sender  string
	Timeout time.Duration
}

// WebhookSender posts {"to","sender","body"} to an HTTP SMS gateway.
// Recipients must already be E.164.
type WebhookSender struct {
	cfg  SMSWebhookConfig
	http *http.Client
}

func NewWebhookSender(cfg SMSWebhookConfig) *WebhookSender {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &WebhookSender{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (s *WebhookSender) ProviderID() string {
	return "sms-webhook"
}

type smsPayload struct {
	To     string `json:"to"`
	Sender string `json:"sender,omitempty"`
	Body   string `json:"body"`
}

func (s *WebhookSender) SendSMS(ctx context.Context, to, body string) error {
	if !strings.HasPrefix(to, "+") {
		return fmt.Errorf("recipient %q is not in E.164 form", to)
	}
	raw, err := json.Marshal(smsPayload{To: to, Sender: s.cfg.Sender, Body: body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender drops messages. It stands in when no gateway is configured.
type NoopSender struct{}

func (NoopSender) ProviderID() string {
	return "sms-noop"
}

func (NoopSender) SendSMS(context.Context, string, string) error {
	return nil
}
