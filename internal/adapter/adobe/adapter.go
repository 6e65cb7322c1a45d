// Package adobe renders a canonical spec as an Adobe Experience Platform XDM
// document: one ExperienceEvent per canonical event plus document-level
// schema, dataset, identity-graph, and data-governance aggregates.
package adobe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/planforge/planforge/internal/adapter"
	"github.com/planforge/planforge/internal/spec"
)

// typeMap maps canonical types to XDM field types.
var typeMap = map[string]string{
	spec.TypeString:   "xdm:string",
	spec.TypeNumber:   "xdm:number",
	spec.TypeBoolean:  "xdm:boolean",
	spec.TypeInteger:  "xdm:int",
	spec.TypeArray:    "xdm:array",
	spec.TypeObject:   "xdm:object",
	spec.TypeDatetime: "xdm:date-time",
}

const defaultType = "xdm:string"

// MapType resolves a canonical property type to its XDM field type.
func MapType(t string) string {
	if mapped, ok := typeMap[spec.NormalizeType(t)]; ok {
		return mapped
	}
	return defaultType
}

// sensitivityLabels maps PII classification to XDM sensitivity labels. A
// classification of none carries no label at all.
var sensitivityLabels = map[spec.Classification]string{
	spec.PIIHigh:   "S1",
	spec.PIIMedium: "S2",
	spec.PIILow:    "S3",
}

// SensitivityLabel returns the XDM label for a classification, or "" when the
// field should carry none.
func SensitivityLabel(c spec.Classification) string {
	return sensitivityLabels[c.Normalize()]
}

// eventTypeRule classifies an event name into an XDM eventType. Rules are
// checked in order; the first match wins, so more specific commerce rules
// precede the generic page/click/search rules.
type eventTypeRule struct {
	match     func(name string) bool
	eventType string
}

func contains(sub string) func(string) bool {
	return func(name string) bool { return strings.Contains(name, sub) }
}

func containsAny(subs ...string) func(string) bool {
	return func(name string) bool {
		for _, sub := range subs {
			if strings.Contains(name, sub) {
				return true
			}
		}
		return false
	}
}

func containsAll(subs ...string) func(string) bool {
	return func(name string) bool {
		for _, sub := range subs {
			if !strings.Contains(name, sub) {
				return false
			}
		}
		return true
	}
}

var eventTypeRules = []eventTypeRule{
	{containsAny("purchase", "order"), "commerce.purchases"},
	{containsAll("cart", "add"), "commerce.productListAdds"},
	{containsAll("cart", "remove"), "commerce.productListRemovals"},
	{contains("checkout"), "commerce.checkouts"},
	{containsAny("view", "page"), "web.webpagedetails.pageViews"},
	{contains("click"), "web.webinteraction.linkClicks"},
	{contains("search"), "searchRequest"},
	{containsAny("login", "signup"), "userAccount.login"},
}

const defaultEventType = "customEvent"

// EventType classifies an event name by keyword cascade over its lowercased
// form.
func EventType(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range eventTypeRules {
		if rule.match(lower) {
			return rule.eventType
		}
	}
	return defaultEventType
}

// Document is the XDM output for one canonical spec.
type Document struct {
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Version          string            `json:"version,omitempty"`
	ExperienceEvents []ExperienceEvent `json:"experienceEvents"`
	Schemas          []SchemaRef       `json:"schemas"`
	Datasets         []Dataset         `json:"datasets"`
	IdentityGraph    IdentityGraph     `json:"identityGraph"`
	DataGovernance   Governance        `json:"dataGovernance"`
	Metadata         Metadata          `json:"metadata"`
}

// Metadata is the document metadata block.
type Metadata struct {
	Source      string `json:"source"`
	GeneratedAt string `json:"generated_at"`
}

// ExperienceEvent is the XDM rendering of one canonical event.
type ExperienceEvent struct {
	ID          string                     `json:"@id"`
	Title       string                     `json:"title"`
	Description string                     `json:"description,omitempty"`
	EventType   string                     `json:"xdm:eventType"`
	Fields      []Field                    `json:"fields"`
	IdentityMap map[string][]IdentityEntry `json:"identityMap"`
}

// Field is one XDM field definition.
type Field struct {
	Name              string `json:"xdm:name"`
	Type              string `json:"xdm:type"`
	Description       string `json:"xdm:description,omitempty"`
	Required          bool   `json:"xdm:required"`
	IdentityNamespace string `json:"xdm:identityNamespace,omitempty"`
	IsPrimary         bool   `json:"xdm:isPrimary,omitempty"`
	SensitivityLabel  string `json:"xdm:sensitivityLabel,omitempty"`
}

// IdentityEntry is one identityMap entry.
type IdentityEntry struct {
	Primary            bool   `json:"primary"`
	AuthenticatedState string `json:"authenticatedState"`
}

// SchemaRef is a document-level schema reference, derived 1:1 from events.
type SchemaRef struct {
	ID    string `json:"$id"`
	Title string `json:"title"`
}

// Dataset is a document-level dataset declaration, derived 1:1 from events.
type Dataset struct {
	Name      string `json:"name"`
	SchemaRef string `json:"schemaRef"`
}

// IdentityGraph aggregates every identity namespace used across events.
type IdentityGraph struct {
	Namespaces []Namespace `json:"namespaces"`
}

// Namespace is one identity namespace; Primary is true if any event marks it
// primary.
type Namespace struct {
	Code    string `json:"code"`
	Primary bool   `json:"primary"`
}

// Governance is the document-level data-governance block.
type Governance struct {
	Labels                  []string `json:"labels"`
	ConsentRequired         bool     `json:"consentRequired"`
	RetentionDays           int      `json:"retentionDays"`
	AllowedMarketingActions []string `json:"allowedMarketingActions"`
}

// Adapter renders XDM documents.
type Adapter struct {
	org string
	now func() time.Time
}

// New creates the Adobe adapter for the given IMS organization id. An empty
// org uses a placeholder.
func New(org string) *Adapter {
	if org == "" {
		org = "{ORG_ID}"
	}
	return &Adapter{org: org, now: time.Now}
}

var _ adapter.Renderer = (*Adapter)(nil)

// Name returns "adobe".
func (a *Adapter) Name() string { return "adobe" }

// Render produces the XDM document.
func (a *Adapter) Render(s *spec.CanonicalSpec) (json.RawMessage, error) {
	events := make([]ExperienceEvent, 0, len(s.Events))
	schemas := make([]SchemaRef, 0, len(s.Events))
	datasets := make([]Dataset, 0, len(s.Events))
	nsPrimary := make(map[string]bool)
	nsOrder := []string{}
	labelSet := make(map[string]struct{})

	for i, ev := range s.Events {
		// The index disambiguates events that slugify to the same name.
		id := fmt.Sprintf("https://ns.adobe.com/%s/schemas/%s_%d", a.org, adapter.Slug(ev.Name), i)

		xe := ExperienceEvent{
			ID:          id,
			Title:       ev.Name,
			Description: ev.Description,
			EventType:   EventType(ev.Name),
			Fields:      a.fields(ev, labelSet),
			IdentityMap: identityMap(ev.Identity),
		}
		events = append(events, xe)
		schemas = append(schemas, SchemaRef{ID: id, Title: ev.Name})
		datasets = append(datasets, Dataset{Name: ev.Name + " Dataset", SchemaRef: id})

		for ns, entries := range xe.IdentityMap {
			if _, seen := nsPrimary[ns]; !seen {
				nsOrder = append(nsOrder, ns)
			}
			for _, e := range entries {
				if e.Primary {
					nsPrimary[ns] = true
				} else if !nsPrimary[ns] {
					nsPrimary[ns] = false
				}
			}
		}
	}

	sort.Strings(nsOrder)
	namespaces := make([]Namespace, 0, len(nsOrder))
	for _, ns := range nsOrder {
		namespaces = append(namespaces, Namespace{Code: ns, Primary: nsPrimary[ns]})
	}

	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	consentRequired := s.HasSensitivePII()
	retention := 90
	actions := []string{"analytics", "email_targeting", "cross_site_targeting"}
	if consentRequired {
		retention = 30
		actions = []string{"analytics"}
	}

	return json.Marshal(&Document{
		Title:            s.Metadata.Title,
		Description:      s.Metadata.Description,
		Version:          s.Metadata.Version,
		ExperienceEvents: events,
		Schemas:          schemas,
		Datasets:         datasets,
		IdentityGraph:    IdentityGraph{Namespaces: namespaces},
		DataGovernance: Governance{
			Labels:                  labels,
			ConsentRequired:         consentRequired,
			RetentionDays:           retention,
			AllowedMarketingActions: actions,
		},
		Metadata: Metadata{
			Source:      "planforge",
			GeneratedAt: a.now().UTC().Format(time.RFC3339),
		},
	})
}

// fields builds the field list for one event: the two standard XDM fields
// first, then the canonical properties. Sensitivity labels encountered along
// the way are added to labelSet for the document-level governance block.
func (a *Adapter) fields(ev spec.Event, labelSet map[string]struct{}) []Field {
	fields := make([]Field, 0, len(ev.Properties)+2)
	fields = append(fields,
		Field{Name: "_id", Type: "xdm:string", Description: "Unique event identifier", Required: true},
		Field{Name: "timestamp", Type: "xdm:date-time", Description: "Event observation time", Required: true},
	)

	for _, p := range ev.Properties {
		f := Field{
			Name:        p.Name,
			Type:        MapType(p.Type),
			Description: p.Description,
			Required:    p.Required,
		}
		if isIdentityCandidate(p.Name) {
			f.IdentityNamespace = namespaceFor(p.Name)
		}
		if ev.Identity.Primary != "" && p.Name == ev.Identity.Primary {
			f.IsPrimary = true
		}
		if label := SensitivityLabel(p.PII.Classification); label != "" {
			f.SensitivityLabel = label
			labelSet[label] = struct{}{}
		}
		fields = append(fields, f)
	}
	return fields
}

// identityMap builds the event identity map: the primary identity field in
// authenticated state, each secondary field in ambiguous state. An event that
// declares no identity at all gets a cookie-based ECID entry so every event
// always has at least one identity.
func identityMap(id spec.Identity) map[string][]IdentityEntry {
	m := make(map[string][]IdentityEntry)
	if id.Primary != "" {
		m[namespaceFor(id.Primary)] = []IdentityEntry{
			{Primary: true, AuthenticatedState: "authenticated"},
		}
	}
	for _, sec := range id.Secondary {
		ns := namespaceFor(sec)
		m[ns] = append(m[ns], IdentityEntry{AuthenticatedState: "ambiguous"})
	}
	if len(m) == 0 {
		m["ECID"] = []IdentityEntry{
			{Primary: true, AuthenticatedState: "ambiguous"},
		}
	}
	return m
}

// isIdentityCandidate reports whether a property name looks like an identity
// field: it contains "id" or "email", case-insensitively.
func isIdentityCandidate(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "id") || strings.Contains(lower, "email")
}

// namespaceFor derives the identity namespace from a property name: the name
// upper-cased with underscores stripped ("user_id" becomes "USERID").
func namespaceFor(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "_", ""))
}
