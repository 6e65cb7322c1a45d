package segment

import (
	"encoding/json"
	"time"

	"github.com/planforge/planforge/internal/adapter"
	"github.com/planforge/planforge/internal/spec"
)

// LegacyPlan is the reduced tracking-plan shape emitted before the full
// JSON-Schema plan existed. It carries only the per-event property types and
// required lists.
//
// Deprecated: older export pipelines still consume this shape; new callers
// should use Plan.
type LegacyPlan struct {
	Name        string        `json:"name"`
	Events      []LegacyEvent `json:"events"`
	GeneratedAt string        `json:"generated_at"`
}

// LegacyEvent is one event in the reduced shape.
type LegacyEvent struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
	Required   []string          `json:"required,omitempty"`
}

// LegacyAdapter renders the reduced legacy plan shape.
type LegacyAdapter struct {
	now func() time.Time
}

// NewLegacy creates the legacy Segment adapter.
func NewLegacy() *LegacyAdapter {
	return &LegacyAdapter{now: time.Now}
}

var _ adapter.Renderer = (*LegacyAdapter)(nil)

// Name returns "segment-legacy".
func (a *LegacyAdapter) Name() string { return "segment-legacy" }

// Render produces the reduced plan document.
func (a *LegacyAdapter) Render(s *spec.CanonicalSpec) (json.RawMessage, error) {
	events := make([]LegacyEvent, 0, len(s.Events))
	for _, ev := range s.Events {
		props := make(map[string]string, len(ev.Properties))
		var required []string
		for _, p := range ev.Properties {
			name := adapter.SnakeCase(p.Name)
			props[name] = MapType(p.Type)
			if p.Required {
				required = append(required, name)
			}
		}
		events = append(events, LegacyEvent{
			Name:       adapter.TitleCase(ev.Name),
			Properties: props,
			Required:   required,
		})
	}

	return json.Marshal(&LegacyPlan{
		Name:        adapter.Slug(s.Metadata.Title),
		Events:      events,
		GeneratedAt: a.now().UTC().Format(time.RFC3339),
	})
}
