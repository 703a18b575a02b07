package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// WebhookSender posts notifications as JSON to a URL.
type WebhookSender struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Recipient string         `json:"recipient"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewWebhookSender constructs a WebhookSender.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send implements Sender.
func (w *WebhookSender) Send(ctx context.Context, n Notification) error {
	if w == nil || w.url == "" {
		return errors.New("webhook sender: empty url")
	}

	body, err := json.Marshal(webhookPayload{
		ID:        n.ID,
		Type:      string(n.Type),
		Recipient: n.Recipient.String(),
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook sender: status %d", resp.StatusCode)
	}
	return nil
}
