package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

const specJSON = `{
  "metadata": {"title": "Checkout Plan", "status": "draft"},
  "events": [
    {
      "name": "Checkout Started",
      "properties": [
        {"name": "cart_value", "type": "number", "required": true,
         "pii": {"classification": "none"}}
      ],
      "identity": {"primary": "user_id"}
    }
  ]
}`

func TestParseCanonical(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		s, err := ParseCanonical(specJSON)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Metadata.Title != "Checkout Plan" || len(s.Events) != 1 {
			t.Errorf("spec = %+v", s)
		}
		if s.Events[0].Identity.Primary != "user_id" {
			t.Errorf("identity = %+v", s.Events[0].Identity)
		}
	})

	t.Run("fenced JSON", func(t *testing.T) {
		s, err := ParseCanonical("```json\n" + specJSON + "\n```")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Metadata.Title != "Checkout Plan" {
			t.Errorf("spec = %+v", s)
		}
	})

	t.Run("missing status defaults to draft", func(t *testing.T) {
		s, err := ParseCanonical(`{"metadata":{"title":"X"},"events":[]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Metadata.Status != "draft" {
			t.Errorf("status = %q, want draft", s.Metadata.Status)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := ParseCanonical("not json"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty object", func(t *testing.T) {
		if _, err := ParseCanonical("{}"); err == nil {
			t.Fatal("expected error for spec with no title and no events")
		}
	})
}

func TestGenerateCanonical(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": specJSON,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := New("test-key", "gpt-4o", WithBaseURL(srv.URL))
	s, err := g.GenerateCanonical(context.Background(), "track the checkout funnel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Metadata.Title != "Checkout Plan" {
		t.Errorf("title = %q", s.Metadata.Title)
	}
	if len(s.Events) != 1 || s.Events[0].Name != "Checkout Started" {
		t.Errorf("events = %+v", s.Events)
	}
}

func TestGenerateCanonicalUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := New("test-key", "gpt-4o", WithBaseURL(srv.URL))
	if _, err := g.GenerateCanonical(context.Background(), "anything"); err == nil {
		t.Fatal("expected error from upstream failure")
	}
}
