// Package enterprise renders a canonical spec as the generic enterprise
// warehouse schema: SCREAMING_SNAKE_CASE events, snake_case fields, and the
// strictest per-field governance derivations of any destination.
package enterprise

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/planforge/planforge/internal/adapter"
	"github.com/planforge/planforge/internal/spec"
)

// typeMap maps canonical types to warehouse column types.
var typeMap = map[string]string{
	spec.TypeString:   "VARCHAR",
	spec.TypeNumber:   "DECIMAL",
	spec.TypeInteger:  "BIGINT",
	spec.TypeBoolean:  "BOOLEAN",
	spec.TypeArray:    "ARRAY",
	spec.TypeObject:   "JSON",
	spec.TypeDatetime: "TIMESTAMP",
}

const defaultType = "VARCHAR"

// MapType resolves a canonical property type to its warehouse column type.
func MapType(t string) string {
	if mapped, ok := typeMap[spec.NormalizeType(t)]; ok {
		return mapped
	}
	return defaultType
}

// piiLevels maps the canonical classification to the document's uppercase
// lexicon.
var piiLevels = map[spec.Classification]string{
	spec.PIINone:   "NONE",
	spec.PIILow:    "LOW",
	spec.PIIMedium: "MEDIUM",
	spec.PIIHigh:   "HIGH",
}

// maskingRules maps PII level to the masking rule applied at rest.
var maskingRules = map[spec.Classification]string{
	spec.PIIHigh:   "FULL_MASK",
	spec.PIIMedium: "PARTIAL_MASK",
	spec.PIILow:    "HASH_SHA256",
	spec.PIINone:   "none",
}

// retentionDays returns the retention window for a PII level: the window
// shrinks as sensitivity grows.
func retentionDays(c spec.Classification) int {
	switch c.Normalize() {
	case spec.PIIHigh:
		return 30
	case spec.PIIMedium:
		return 90
	}
	return 365
}

// consentFor derives consent requirements from a PII level: HIGH needs both
// explicit and data-processing consent, MEDIUM implied consent only, LOW and
// NONE nothing.
func consentFor(c spec.Classification) ConsentRequirements {
	switch c.Normalize() {
	case spec.PIIHigh:
		return ConsentRequirements{
			Required:     true,
			ConsentTypes: []string{"explicit_consent", "data_processing_consent"},
		}
	case spec.PIIMedium:
		return ConsentRequirements{
			Required:     true,
			ConsentTypes: []string{"implied_consent"},
		}
	}
	return ConsentRequirements{Required: false}
}

// categoryRule classifies an event name into a coarse category. Checks are
// independent substring matches evaluated in source order; an event name
// matching several categories takes the first.
type categoryRule struct {
	keywords []string
	category string
}

var categoryRules = []categoryRule{
	{[]string{"purchase", "order", "cart", "checkout", "payment", "revenue"}, "commerce"},
	{[]string{"login", "logout", "signup", "register", "auth", "password"}, "authentication"},
	{[]string{"click", "view", "share", "like", "watch", "play"}, "engagement"},
	{[]string{"search", "browse", "filter", "discover"}, "discovery"},
}

const defaultCategory = "general"

// Categorize classifies an event name by keyword cascade.
func Categorize(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return defaultCategory
}

// destinationRule maps a destination name substring to a coarse system type.
type destinationRule struct {
	keywords []string
	destType string
}

var destinationRules = []destinationRule{
	{[]string{"segment", "mparticle", "tealium", "rudderstack", "cdp"}, "CDP"},
	{[]string{"adobe", "analytics", "amplitude", "mixpanel", "heap"}, "ANALYTICS"},
	{[]string{"salesforce", "hubspot", "braze", "crm"}, "CRM"},
	{[]string{"snowflake", "bigquery", "redshift", "databricks", "warehouse"}, "DATA_WAREHOUSE"},
}

const defaultDestType = "CDP"

// DestinationType classifies a destination name by substring match.
func DestinationType(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range destinationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.destType
			}
		}
	}
	return defaultDestType
}

// Document is the enterprise schema output.
type Document struct {
	Specification Specification `json:"specification"`
	Events        []Event       `json:"events"`
	Destinations  []Destination `json:"destinations"`
	GeneratedAt   string        `json:"generated_at"`
}

// Specification echoes the plan metadata.
type Specification struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Event is one enterprise event definition.
type Event struct {
	EventName     string      `json:"event_name"`
	EventCategory string      `json:"event_category"`
	Description   string      `json:"description,omitempty"`
	Fields        []Field     `json:"fields"`
	DataQuality   DataQuality `json:"data_quality"`
}

// Field is one column definition with its governance derivations.
type Field struct {
	FieldName           string              `json:"field_name"`
	DataType            string              `json:"data_type"`
	Nullable            bool                `json:"nullable"`
	Description         string              `json:"description,omitempty"`
	PIIClassification   string              `json:"pii_classification"`
	DataGovernance      FieldGovernance     `json:"data_governance"`
	ConsentRequirements ConsentRequirements `json:"consent_requirements"`
}

// FieldGovernance carries per-field retention, encryption, and masking.
type FieldGovernance struct {
	RetentionDays      int    `json:"retention_days"`
	EncryptionRequired bool   `json:"encryption_required"`
	MaskingRule        string `json:"masking_rule"`
}

// ConsentRequirements declares what consent a field's collection needs.
type ConsentRequirements struct {
	Required     bool     `json:"required"`
	ConsentTypes []string `json:"consent_types,omitempty"`
}

// DataQuality lists the non-nullable fields of an event.
type DataQuality struct {
	RequiredFields []string `json:"required_fields"`
}

// Destination is one downstream system classification.
type Destination struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Requirements string `json:"requirements,omitempty"`
}

// Adapter renders enterprise schema documents.
type Adapter struct {
	now func() time.Time
}

// New creates the enterprise adapter.
func New() *Adapter {
	return &Adapter{now: time.Now}
}

var _ adapter.Renderer = (*Adapter)(nil)

// Name returns "enterprise".
func (a *Adapter) Name() string { return "enterprise" }

// Render produces the enterprise document.
func (a *Adapter) Render(s *spec.CanonicalSpec) (json.RawMessage, error) {
	events := make([]Event, 0, len(s.Events))
	for _, ev := range s.Events {
		fields := standardFields()
		for _, p := range ev.Properties {
			fields = append(fields, fieldFor(p))
		}

		var required []string
		for _, f := range fields {
			if !f.Nullable {
				required = append(required, f.FieldName)
			}
		}

		events = append(events, Event{
			EventName:     adapter.ScreamingSnakeCase(ev.Name),
			EventCategory: Categorize(ev.Name),
			Description:   ev.Description,
			Fields:        fields,
			DataQuality:   DataQuality{RequiredFields: required},
		})
	}

	dests := make([]Destination, 0, len(s.Destinations))
	for _, d := range s.Destinations {
		dests = append(dests, Destination{
			Name:         d.Name,
			Type:         DestinationType(d.Name),
			Requirements: d.Requirements,
		})
	}

	return json.Marshal(&Document{
		Specification: Specification{
			Name:        s.Metadata.Title,
			Description: s.Metadata.Description,
			Version:     s.Metadata.Version,
		},
		Events:       events,
		Destinations: dests,
		GeneratedAt:  a.now().UTC().Format(time.RFC3339),
	})
}

func fieldFor(p spec.Property) Field {
	c := p.PII.Classification.Normalize()
	return Field{
		FieldName:         adapter.SnakeCase(p.Name),
		DataType:          MapType(p.Type),
		Nullable:          !p.Required,
		Description:       p.Description,
		PIIClassification: piiLevels[c],
		DataGovernance: FieldGovernance{
			RetentionDays:      retentionDays(c),
			EncryptionRequired: c == spec.PIIHigh || c == spec.PIIMedium,
			MaskingRule:        maskingRules[c],
		},
		ConsentRequirements: consentFor(c),
	}
}

// standardFields returns the three fields prepended to every event.
// session_id is pinned to LOW sensitivity with a 90-day window and hashed
// masking regardless of canonical content.
func standardFields() []Field {
	return []Field{
		{
			FieldName:         "event_id",
			DataType:          "VARCHAR",
			Nullable:          false,
			Description:       "Unique event identifier",
			PIIClassification: "NONE",
			DataGovernance: FieldGovernance{
				RetentionDays: 365,
				MaskingRule:   "none",
			},
			ConsentRequirements: ConsentRequirements{Required: false},
		},
		{
			FieldName:         "event_timestamp",
			DataType:          "TIMESTAMP",
			Nullable:          false,
			Description:       "Event occurrence time",
			PIIClassification: "NONE",
			DataGovernance: FieldGovernance{
				RetentionDays: 365,
				MaskingRule:   "none",
			},
			ConsentRequirements: ConsentRequirements{Required: false},
		},
		{
			FieldName:         "session_id",
			DataType:          "VARCHAR",
			Nullable:          false,
			Description:       "Browser or app session identifier",
			PIIClassification: "LOW",
			DataGovernance: FieldGovernance{
				RetentionDays: 90,
				MaskingRule:   "HASH_SHA256",
			},
			ConsentRequirements: ConsentRequirements{Required: false},
		},
	}
}
