// Package spec defines the canonical tracking-plan representation shared by
// every destination adapter. A CanonicalSpec is produced once (by the AI
// generator or supplied directly by a caller) and is treated as read-only by
// everything downstream.
package spec

import "strings"

// Status is the review state of a stored specification.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusPendingApproval  Status = "pending_approval"
	StatusChangesRequested Status = "changes_requested"
	StatusValidated        Status = "validated"
	StatusApproved         Status = "approved"
)

// ValidStatus reports whether s is a known review status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusChangesRequested, StatusValidated, StatusApproved:
		return true
	}
	return false
}

// CanonicalSpec is the single source of truth for one tracking plan.
type CanonicalSpec struct {
	Metadata           Metadata      `json:"metadata"`
	Events             []Event       `json:"events"`
	Destinations       []Destination `json:"destinations,omitempty"`
	AcceptanceCriteria []string      `json:"acceptance_criteria,omitempty"`
	OpenQuestions      []string      `json:"open_questions,omitempty"`
}

// Metadata describes the plan itself, not its events.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	Status      Status `json:"status,omitempty"`
	Requestor   string `json:"requestor,omitempty"`
}

// Destination is a named delivery target with optional free-text requirements.
type Destination struct {
	Name         string `json:"name"`
	Requirements string `json:"requirements,omitempty"`
}

// Event is one tracked user action.
type Event struct {
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Trigger        string     `json:"trigger,omitempty"`
	Properties     []Property `json:"properties,omitempty"`
	Identity       Identity   `json:"identity,omitempty"`
	BusinessRules  []string   `json:"business_rules,omitempty"`
	TechnicalRules []string   `json:"technical_rules,omitempty"`
}

// Identity declares which property name(s) identify the acting user.
// Primary is at most one field; Secondary may be empty.
type Identity struct {
	Primary   string   `json:"primary,omitempty"`
	Secondary []string `json:"secondary,omitempty"`
}

// Property is one field carried on an event.
type Property struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
	PII         PII    `json:"pii,omitempty"`
}

// PII tags a property with a sensitivity classification that drives each
// adapter's governance output.
type PII struct {
	Classification Classification `json:"classification,omitempty"`
	Reason         string         `json:"reason,omitempty"`
}

// Classification is a four-level PII sensitivity tag.
type Classification string

const (
	PIINone   Classification = "none"
	PIILow    Classification = "low"
	PIIMedium Classification = "medium"
	PIIHigh   Classification = "high"
)

// Normalize lowercases the classification and maps anything unrecognized
// (including the empty string) to PIINone.
func (c Classification) Normalize() Classification {
	switch Classification(strings.ToLower(string(c))) {
	case PIILow:
		return PIILow
	case PIIMedium:
		return PIIMedium
	case PIIHigh:
		return PIIHigh
	}
	return PIINone
}

// Rank orders classifications none < low < medium < high.
func (c Classification) Rank() int {
	switch c.Normalize() {
	case PIILow:
		return 1
	case PIIMedium:
		return 2
	case PIIHigh:
		return 3
	}
	return 0
}

// Canonical primitive type names. Property type strings are compared
// case-insensitively against this set; anything else falls back to each
// adapter's default primitive.
const (
	TypeString   = "string"
	TypeNumber   = "number"
	TypeBoolean  = "boolean"
	TypeInteger  = "integer"
	TypeArray    = "array"
	TypeObject   = "object"
	TypeDatetime = "datetime"
)

// NormalizeType lowercases a canonical property type. Callers look the result
// up in their own mapping tables; unrecognized values hit the table default.
func NormalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// HasSensitivePII reports whether any property anywhere in the spec is
// classified medium or high.
func (s *CanonicalSpec) HasSensitivePII() bool {
	for _, ev := range s.Events {
		for _, p := range ev.Properties {
			if p.PII.Classification.Rank() >= PIIMedium.Rank() {
				return true
			}
		}
	}
	return false
}
