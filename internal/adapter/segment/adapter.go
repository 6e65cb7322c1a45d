// Package segment renders a canonical spec as a Segment tracking plan. The
// primary output is the full JSON-Schema-shaped plan; a reduced legacy shape
// is kept for older export pipelines.
package segment

import (
	"encoding/json"
	"time"

	"github.com/planforge/planforge/internal/adapter"
	"github.com/planforge/planforge/internal/spec"
)

const jsonSchemaDraft = "http://json-schema.org/draft-07/schema#"

// timestampPattern validates an ISO-8601 prefix on the injected timestamp
// property.
const timestampPattern = `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`

// typeMap maps canonical primitive types to Segment JSON-Schema types.
// Lookup is lowercased; anything absent falls back to defaultType.
var typeMap = map[string]string{
	spec.TypeString:   "string",
	spec.TypeNumber:   "number",
	spec.TypeBoolean:  "boolean",
	spec.TypeInteger:  "integer",
	spec.TypeArray:    "array",
	spec.TypeObject:   "object",
	spec.TypeDatetime: "string",
}

const defaultType = "string"

// MapType resolves a canonical property type to its Segment JSON-Schema type.
func MapType(t string) string {
	if mapped, ok := typeMap[spec.NormalizeType(t)]; ok {
		return mapped
	}
	return defaultType
}

// Plan is the full tracking-plan document.
type Plan struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Rules       Rules    `json:"rules"`
	Metadata    Metadata `json:"metadata"`
}

// Metadata is the document metadata block.
type Metadata struct {
	Source      string `json:"source"`
	Version     string `json:"version,omitempty"`
	GeneratedAt string `json:"generated_at"`
}

// Rules holds the per-event schemas plus the synthesized global, identify,
// and group schemas.
type Rules struct {
	Events   []EventRule `json:"events"`
	Global   Schema      `json:"global"`
	Identify Schema      `json:"identify"`
	Group    Schema      `json:"group"`
}

// EventRule is one tracked event with its JSON-Schema property rules.
type EventRule struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Rules       Schema `json:"rules"`
}

// Schema is a JSON-Schema-shaped rule document.
type Schema struct {
	SchemaRef  string              `json:"$schema,omitempty"`
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property is one JSON-Schema property definition.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
}

// Adapter renders Segment tracking plans.
type Adapter struct {
	now func() time.Time
}

// New creates the Segment adapter.
func New() *Adapter {
	return &Adapter{now: time.Now}
}

var _ adapter.Renderer = (*Adapter)(nil)

// Name returns "segment".
func (a *Adapter) Name() string { return "segment" }

// Render produces the full tracking-plan document.
func (a *Adapter) Render(s *spec.CanonicalSpec) (json.RawMessage, error) {
	return json.Marshal(a.Plan(s))
}

// Plan builds the full tracking-plan document for s.
func (a *Adapter) Plan(s *spec.CanonicalSpec) *Plan {
	events := make([]EventRule, 0, len(s.Events))
	for _, ev := range s.Events {
		events = append(events, EventRule{
			Name:        adapter.TitleCase(ev.Name),
			Description: ev.Description,
			Rules:       eventSchema(ev),
		})
	}

	return &Plan{
		Name:        adapter.Slug(s.Metadata.Title),
		DisplayName: s.Metadata.Title,
		Rules: Rules{
			Events:   events,
			Global:   globalSchema(),
			Identify: identifySchema(),
			Group:    groupSchema(),
		},
		Metadata: Metadata{
			Source:      "planforge",
			Version:     s.Metadata.Version,
			GeneratedAt: a.now().UTC().Format(time.RFC3339),
		},
	}
}

func eventSchema(ev spec.Event) Schema {
	props := make(map[string]Property, len(ev.Properties)+2)
	var required []string
	for _, p := range ev.Properties {
		name := adapter.SnakeCase(p.Name)
		props[name] = Property{
			Type:        MapType(p.Type),
			Description: p.Description,
		}
		if p.Required {
			required = append(required, name)
		}
	}

	// Every event carries a context object and an ISO-8601 timestamp unless
	// the canonical spec already declares them.
	if _, ok := props["context"]; !ok {
		props["context"] = Property{
			Type:        "object",
			Description: "Event context (library, page, device)",
		}
	}
	if _, ok := props["timestamp"]; !ok {
		props["timestamp"] = Property{
			Type:        "string",
			Description: "ISO-8601 event timestamp",
			Pattern:     timestampPattern,
		}
	}

	return Schema{
		SchemaRef:  jsonSchemaDraft,
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// globalSchema returns the constant message-envelope properties present on
// every Segment call. These are scaffolding, not derived from canonical data.
func globalSchema() Schema {
	return Schema{
		SchemaRef: jsonSchemaDraft,
		Type:      "object",
		Properties: map[string]Property{
			"anonymousId": {Type: "string", Description: "Pseudo-anonymous visitor identifier"},
			"userId":      {Type: "string", Description: "Authenticated user identifier"},
			"messageId":   {Type: "string", Description: "Unique message identifier"},
			"sentAt":      {Type: "string", Description: "Client-side send time"},
			"receivedAt":  {Type: "string", Description: "Server-side receive time"},
		},
	}
}

func identifySchema() Schema {
	return Schema{
		SchemaRef: jsonSchemaDraft,
		Type:      "object",
		Properties: map[string]Property{
			"email":      {Type: "string", Description: "User email address"},
			"name":       {Type: "string", Description: "User full name"},
			"created_at": {Type: "string", Description: "Account creation time"},
		},
	}
}

func groupSchema() Schema {
	return Schema{
		SchemaRef: jsonSchemaDraft,
		Type:      "object",
		Properties: map[string]Property{
			"name":      {Type: "string", Description: "Group or account name"},
			"industry":  {Type: "string", Description: "Group industry"},
			"employees": {Type: "number", Description: "Employee count"},
		},
	}
}
