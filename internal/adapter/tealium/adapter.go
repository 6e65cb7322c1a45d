// Package tealium renders a canonical spec as a Tealium event specification.
// Tealium's document is deliberately the flattest of the destinations: a
// per-event attribute list with no governance fields.
package tealium

import (
	"encoding/json"
	"time"

	"github.com/planforge/planforge/internal/adapter"
	"github.com/planforge/planforge/internal/spec"
)

// typeMap collapses the canonical types into Tealium's attribute lexicon.
// Tealium has no integer type and only string arrays.
var typeMap = map[string]string{
	spec.TypeString:   "string",
	spec.TypeNumber:   "number",
	spec.TypeInteger:  "number",
	spec.TypeBoolean:  "boolean",
	spec.TypeArray:    "array_of_strings",
	spec.TypeObject:   "string",
	spec.TypeDatetime: "date",
}

const defaultType = "string"

// MapType resolves a canonical property type to its Tealium attribute type.
func MapType(t string) string {
	if mapped, ok := typeMap[spec.NormalizeType(t)]; ok {
		return mapped
	}
	return defaultType
}

// Document is the Tealium event specification.
type Document struct {
	Account     string  `json:"account"`
	Profile     string  `json:"profile"`
	Events      []Event `json:"events"`
	GeneratedAt string  `json:"generated_at"`
}

// Event is one Tealium event with its flat attribute list.
type Event struct {
	EventName  string      `json:"event_name"`
	EventType  string      `json:"event_type"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute is one event attribute.
type Attribute struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Adapter renders Tealium documents.
type Adapter struct {
	account string
	profile string
	now     func() time.Time
}

// New creates the Tealium adapter for the given account and profile. Empty
// values fall back to placeholder defaults.
func New(account, profile string) *Adapter {
	if account == "" {
		account = "your-account"
	}
	if profile == "" {
		profile = "main"
	}
	return &Adapter{account: account, profile: profile, now: time.Now}
}

var _ adapter.Renderer = (*Adapter)(nil)

// Name returns "tealium".
func (a *Adapter) Name() string { return "tealium" }

// Render produces the Tealium document.
func (a *Adapter) Render(s *spec.CanonicalSpec) (json.RawMessage, error) {
	events := make([]Event, 0, len(s.Events))
	for _, ev := range s.Events {
		attrs := make([]Attribute, 0, len(ev.Properties))
		for _, p := range ev.Properties {
			attrs = append(attrs, Attribute{
				Name:        p.Name,
				Type:        MapType(p.Type),
				Required:    p.Required,
				Description: p.Description,
			})
		}
		events = append(events, Event{
			EventName:  ev.Name,
			EventType:  "event",
			Attributes: attrs,
		})
	}

	return json.Marshal(&Document{
		Account:     a.account,
		Profile:     a.profile,
		Events:      events,
		GeneratedAt: a.now().UTC().Format(time.RFC3339),
	})
}
