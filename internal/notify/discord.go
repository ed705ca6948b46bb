package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DiscordBroadcaster delivers trade alerts to a Discord webhook.
type DiscordBroadcaster struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordBroadcaster creates a DiscordBroadcaster for the given webhook
// URL.
func NewDiscordBroadcaster(webhookURL string) *DiscordBroadcaster {
	return &DiscordBroadcaster{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the alert to the webhook. The title is rendered in bold Discord
// markdown. Discord returns 204 No Content on success.
func (d *DiscordBroadcaster) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", title, message),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the broadcaster identifier.
func (d *DiscordBroadcaster) Name() string {
	return "discord"
}
