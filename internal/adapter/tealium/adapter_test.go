package tealium

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/planforge/planforge/internal/spec"
)

func TestMapType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"string", "string"},
		{"integer", "number"},
		{"number", "number"},
		{"Array", "array_of_strings"},
		{"datetime", "date"},
		{"currency", "string"},
		{"", "string"},
	}
	for _, tt := range tests {
		if got := MapType(tt.in); got != tt.want {
			t.Errorf("MapType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	a := New("acme", "web")
	a.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	raw, err := a.Render(&spec.CanonicalSpec{
		Metadata: spec.Metadata{Title: "Minimal Plan"},
		Events: []spec.Event{
			{
				Name: "Add To Cart",
				Properties: []spec.Property{
					{Name: "product_id", Type: "string", Required: true},
					{Name: "quantity", Type: "integer", Required: false},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if doc.Account != "acme" || doc.Profile != "web" {
		t.Errorf("account/profile = %s/%s, want acme/web", doc.Account, doc.Profile)
	}
	if len(doc.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(doc.Events))
	}

	ev := doc.Events[0]
	if ev.EventName != "Add To Cart" || ev.EventType != "event" {
		t.Errorf("event = %+v", ev)
	}
	if len(ev.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(ev.Attributes))
	}

	first := ev.Attributes[0]
	if first.Name != "product_id" || first.Type != "string" || !first.Required {
		t.Errorf("first attribute = %+v", first)
	}
	if ev.Attributes[1].Type != "number" {
		t.Errorf("integer should collapse to number, got %q", ev.Attributes[1].Type)
	}
}

func TestNewDefaults(t *testing.T) {
	a := New("", "")
	if a.account == "" || a.profile == "" {
		t.Error("expected placeholder account and profile defaults")
	}
}
