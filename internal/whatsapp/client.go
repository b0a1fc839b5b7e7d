// Package whatsapp implements the client for the WhatsApp bridge REST API
// (go-whatsapp-web-multidevice). The bridge is the opaque message source and
// sink: inbound traffic arrives on the webhook, outbound goes through here.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/config"
)

// GroupInfo describes one group the bridge account is a member of.
type GroupInfo struct {
	JID  string `json:"jid"`
	Name string `json:"name"`
}

// Client talks to the WhatsApp bridge over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a bridge client from the WhatsApp configuration section.
func NewClient(cfg config.WhatsAppConfig, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.With("component", "whatsapp_client"),
	}
}

// SendMessage delivers text to a phone number or JID through the bridge.
// A non-2xx response is a delivery failure returned as an error; callers at
// the aggregation boundary treat it as a flag, not a reason to abort.
func (c *Client) SendMessage(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to send message via bridge", "to", phone, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", phone, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.ErrorContext(ctx, "Bridge rejected send request",
			"to", phone, "status", resp.StatusCode, "body", string(snippet))
		return fmt.Errorf("bridge returned status %d sending to %s", resp.StatusCode, phone)
	}

	c.log.InfoContext(ctx, "Message sent via bridge", "to", phone)
	return nil
}

// Groups lists the groups the bridge account is part of. Used for the
// best-effort group sync at startup.
func (c *Client) Groups(ctx context.Context) ([]GroupInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/groups", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build groups request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bridge returned status %d listing groups", resp.StatusCode)
	}

	var groups []GroupInfo
	if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups response: %w", err)
	}

	c.log.DebugContext(ctx, "Retrieved groups from bridge", "count", len(groups))
	return groups, nil
}
