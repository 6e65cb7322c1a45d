// Package notify delivers status-change notifications to the configured
// outbound channels: a chat webhook and an issue tracker. Notification
// failures are logged by the caller and never propagated into the save or
// update operation that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/planforge/planforge/internal/spec"
	"github.com/planforge/planforge/internal/storage"
)

// ChatConfig is the chat-webhook integration configuration.
type ChatConfig struct {
	WebhookURL string `json:"webhook_url"`
	Channel    string `json:"channel,omitempty"`
}

// IssueConfig is the issue-tracker integration configuration.
type IssueConfig struct {
	BaseURL    string `json:"base_url"`
	Username   string `json:"username"`
	APIToken   string `json:"api_token"`
	ProjectKey string `json:"project_key"`
}

// Notifier delivers one status-change notification.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, rec *storage.Record, from spec.Status) error
}

// Dispatcher loads integration configuration at notification time and fans
// the event out to every configured channel. Channels fail independently;
// every failure is logged and swallowed.
type Dispatcher struct {
	integrations storage.IntegrationStore
	client       *http.Client
	logger       *slog.Logger
}

// NewDispatcher creates a Dispatcher backed by the given integration store.
func NewDispatcher(integrations storage.IntegrationStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		integrations: integrations,
		client:       &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
	}
}

// NotifyStatusChange sends the status change to each configured channel. It
// always returns nil: a failed outbound notification must never fail the
// operation it was attached to.
func (d *Dispatcher) NotifyStatusChange(ctx context.Context, rec *storage.Record, from spec.Status) error {
	for _, n := range d.notifiers(ctx) {
		if err := n.NotifyStatusChange(ctx, rec, from); err != nil {
			d.logger.Warn("notification failed",
				slog.String("spec_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (d *Dispatcher) notifiers(ctx context.Context) []Notifier {
	var out []Notifier

	var chat ChatConfig
	if d.loadConfig(ctx, "chat", &chat) && chat.WebhookURL != "" {
		out = append(out, &ChatNotifier{Config: chat, Client: d.client})
	}

	var issues IssueConfig
	if d.loadConfig(ctx, "issues", &issues) && issues.BaseURL != "" {
		out = append(out, &IssueNotifier{Config: issues, Client: d.client})
	}
	return out
}

func (d *Dispatcher) loadConfig(ctx context.Context, name string, v any) bool {
	raw, err := d.integrations.GetIntegration(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		d.logger.Warn("failed to load integration config",
			slog.String("integration", name),
			slog.String("error", err.Error()),
		)
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		d.logger.Warn("invalid integration config",
			slog.String("integration", name),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// ChatNotifier posts a short text message to a chat webhook.
type ChatNotifier struct {
	Config ChatConfig
	Client *http.Client
}

func (n *ChatNotifier) NotifyStatusChange(ctx context.Context, rec *storage.Record, from spec.Status) error {
	text := fmt.Sprintf("Tracking plan %q moved from %s to %s",
		rec.Spec.Metadata.Title, from, rec.Status)

	payload := map[string]string{"text": text}
	if n.Config.Channel != "" {
		payload["channel"] = n.Config.Channel
	}
	return postJSON(ctx, n.Client, n.Config.WebhookURL, payload, nil)
}

// IssueNotifier creates a tracker issue recording the status change.
type IssueNotifier struct {
	Config IssueConfig
	Client *http.Client
}

func (n *IssueNotifier) NotifyStatusChange(ctx context.Context, rec *storage.Record, from spec.Status) error {
	payload := map[string]any{
		"fields": map[string]any{
			"project": map[string]string{"key": n.Config.ProjectKey},
			"summary": fmt.Sprintf("[%s] Tracking plan %q", rec.Status, rec.Spec.Metadata.Title),
			"description": fmt.Sprintf("Specification %s changed status from %s to %s.",
				rec.ID, from, rec.Status),
			"issuetype": map[string]string{"name": "Task"},
		},
	}

	auth := func(req *http.Request) {
		req.SetBasicAuth(n.Config.Username, n.Config.APIToken)
	}
	url := fmt.Sprintf("%s/rest/api/2/issue", n.Config.BaseURL)
	return postJSON(ctx, n.Client, url, payload, auth)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, decorate func(*http.Request)) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification returned status %d", resp.StatusCode)
	}
	return nil
}
