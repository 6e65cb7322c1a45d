// Package mparticle renders a canonical spec as an mParticle data plan. Each
// event becomes one data point whose validator is a JSON-Schema fragment
// rooted at custom_attributes.
package mparticle

import (
	"encoding/json"
	"time"

	"github.com/planforge/planforge/internal/adapter"
	"github.com/planforge/planforge/internal/spec"
)

// typeMap maps canonical types to mParticle JSON-Schema types.
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

// MapType resolves a canonical property type to its mParticle schema type.
func MapType(t string) string {
	if mapped, ok := typeMap[spec.NormalizeType(t)]; ok {
		return mapped
	}
	return defaultType
}

// DataPlan is the mParticle data plan document. The plan id is the slug of
// the spec title: slugification is the adapter's only identity derivation and
// is idempotent.
type DataPlan struct {
	DataPlanID       string            `json:"data_plan_id"`
	DataPlanName     string            `json:"data_plan_name"`
	VersionDocuments []VersionDocument `json:"version_documents"`
	GeneratedAt      string            `json:"generated_at"`
}

// VersionDocument is one version of the plan; only version 1 is emitted.
type VersionDocument struct {
	Version    int         `json:"version"`
	DataPoints []DataPoint `json:"data_points"`
}

// DataPoint matches one custom event and validates its attributes.
type DataPoint struct {
	Match     Match     `json:"match"`
	Validator Validator `json:"validator"`
}

// Match selects the event a data point applies to.
type Match struct {
	Type     string   `json:"type"`
	Criteria Criteria `json:"criteria"`
}

// Criteria carries the event name the match keys on.
type Criteria struct {
	EventName string `json:"event_name"`
}

// Validator is the JSON-Schema validator for a data point.
type Validator struct {
	Type       string     `json:"type"`
	Definition Definition `json:"definition"`
}

// Definition wraps the data.custom_attributes schema path mParticle expects.
type Definition struct {
	Properties DefinitionData `json:"properties"`
}

// DefinitionData holds the "data" schema node.
type DefinitionData struct {
	Data DataNode `json:"data"`
}

// DataNode holds the "custom_attributes" schema node.
type DataNode struct {
	Properties CustomAttributesNode `json:"properties"`
}

// CustomAttributesNode is the attribute schema for one event.
type CustomAttributesNode struct {
	CustomAttributes AttributeSchema `json:"custom_attributes"`
}

// AttributeSchema is the JSON-Schema object for an event's attributes.
type AttributeSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property is one attribute definition.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Adapter renders mParticle data plans.
type Adapter struct {
	now func() time.Time
}

// New creates the mParticle adapter.
func New() *Adapter {
	return &Adapter{now: time.Now}
}

var _ adapter.Renderer = (*Adapter)(nil)

// Name returns "mparticle".
func (a *Adapter) Name() string { return "mparticle" }

// Render produces the data plan document.
func (a *Adapter) Render(s *spec.CanonicalSpec) (json.RawMessage, error) {
	points := make([]DataPoint, 0, len(s.Events))
	for _, ev := range s.Events {
		props := make(map[string]Property, len(ev.Properties))
		var required []string
		for _, p := range ev.Properties {
			props[p.Name] = Property{
				Type:        MapType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		points = append(points, DataPoint{
			Match: Match{
				Type:     "custom_event",
				Criteria: Criteria{EventName: ev.Name},
			},
			Validator: Validator{
				Type: "json_schema",
				Definition: Definition{
					Properties: DefinitionData{
						Data: DataNode{
							Properties: CustomAttributesNode{
								CustomAttributes: AttributeSchema{
									Type:       "object",
									Properties: props,
									Required:   required,
								},
							},
						},
					},
				},
			},
		})
	}

	return json.Marshal(&DataPlan{
		DataPlanID:   adapter.Slug(s.Metadata.Title),
		DataPlanName: s.Metadata.Title,
		VersionDocuments: []VersionDocument{
			{Version: 1, DataPoints: points},
		},
		GeneratedAt: a.now().UTC().Format(time.RFC3339),
	})
}
