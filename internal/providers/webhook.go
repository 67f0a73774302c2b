package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"medical-alert-service/internal/channels"
	"medical-alert-service/internal/models"
)

// WebhookPayload is the JSON body posted to webhook contacts.
type WebhookPayload struct {
	Team  string              `json:"team"`
	Alert models.AlertPayload `json:"alert"`
}

// Webhook posts alerts as JSON to the contact's URL.
type Webhook struct {
	client *http.Client
}

func NewWebhook() *Webhook {
	return NewWebhookWithClient(&http.Client{Timeout: 10 * time.Second})
}

func NewWebhookWithClient(client *http.Client) *Webhook {
	return &Webhook{client: client}
}

func (w *Webhook) Handle(ctx context.Context, d channels.Delivery) error {
	body, err := json.Marshal(WebhookPayload{Team: d.Team, Alert: d.Alert})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Contact.Target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alert-Tier", d.Alert.Tier.String())

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
