package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/planforge/planforge/internal/spec"
	"github.com/planforge/planforge/internal/storage"
	"github.com/planforge/planforge/internal/storage/memory"
)

func testRecord() *storage.Record {
	return &storage.Record{
		ID:     "rec-1",
		Spec:   spec.CanonicalSpec{Metadata: spec.Metadata{Title: "Checkout Plan"}},
		Status: spec.StatusApproved,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChatNotifier(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &ChatNotifier{
		Config: ChatConfig{WebhookURL: srv.URL, Channel: "#tracking"},
		Client: srv.Client(),
	}
	if err := n.NotifyStatusChange(context.Background(), testRecord(), spec.StatusValidated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(got["text"], "Checkout Plan") || !strings.Contains(got["text"], "approved") {
		t.Errorf("text = %q", got["text"])
	}
	if got["channel"] != "#tracking" {
		t.Errorf("channel = %q", got["channel"])
	}
}

func TestIssueNotifier(t *testing.T) {
	var gotPath, gotUser string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := &IssueNotifier{
		Config: IssueConfig{BaseURL: srv.URL, Username: "bot", APIToken: "token", ProjectKey: "TRK"},
		Client: srv.Client(),
	}
	if err := n.NotifyStatusChange(context.Background(), testRecord(), spec.StatusDraft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/rest/api/2/issue" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "bot" {
		t.Errorf("basic auth user = %q", gotUser)
	}
	fields := payload["fields"].(map[string]any)
	project := fields["project"].(map[string]any)
	if project["key"] != "TRK" {
		t.Errorf("project = %v", project)
	}
}

func TestNotifierErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := &ChatNotifier{Config: ChatConfig{WebhookURL: srv.URL}, Client: srv.Client()}
	if err := n.NotifyStatusChange(context.Background(), testRecord(), spec.StatusDraft); err == nil {
		t.Fatal("expected error from 500 response")
	}
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	// Point the chat integration at a server that always fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg, _ := json.Marshal(ChatConfig{WebhookURL: srv.URL})
	if err := store.SetIntegration(ctx, "chat", cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := NewDispatcher(store, quietLogger())
	if err := d.NotifyStatusChange(ctx, testRecord(), spec.StatusDraft); err != nil {
		t.Fatalf("dispatcher must swallow notification failures, got %v", err)
	}
}

func TestDispatcherNoIntegrationsConfigured(t *testing.T) {
	d := NewDispatcher(memory.New(), quietLogger())
	if err := d.NotifyStatusChange(context.Background(), testRecord(), spec.StatusDraft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
