package adobe

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/planforge/planforge/internal/spec"
)

func render(t *testing.T, s *spec.CanonicalSpec) Document {
	t.Helper()
	a := New("myorg")
	a.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	raw, err := a.Render(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return doc
}

func TestEventType(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"Order Completed", "commerce.purchases"},
		{"Purchase", "commerce.purchases"},
		{"Add To Cart", "commerce.productListAdds"},
		{"Cart Item Removed", "commerce.productListRemovals"},
		{"Checkout Started", "commerce.checkouts"},
		// "cart" plus "add" outranks "checkout" when both would match.
		{"Cart Added At Checkout", "commerce.productListAdds"},
		{"Product Viewed", "web.webpagedetails.pageViews"},
		{"Page Loaded", "web.webpagedetails.pageViews"},
		{"Banner Clicked", "web.webinteraction.linkClicks"},
		{"Search Submitted", "searchRequest"},
		{"Login", "userAccount.login"},
		{"Signup Completed", "userAccount.login"},
		{"Settings Changed", "customEvent"},
	}
	for _, tt := range tests {
		if got := EventType(tt.name); got != tt.want {
			t.Errorf("EventType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMapType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"string", "xdm:string"},
		{"Array", "xdm:array"},
		{"datetime", "xdm:date-time"},
		{"currency", "xdm:string"},
		{"", "xdm:string"},
	}
	for _, tt := range tests {
		if got := MapType(tt.in); got != tt.want {
			t.Errorf("MapType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderStandardFieldsPrepended(t *testing.T) {
	doc := render(t, &spec.CanonicalSpec{
		Metadata: spec.Metadata{Title: "Plan"},
		Events: []spec.Event{
			{Name: "Product Viewed", Properties: []spec.Property{{Name: "sku", Type: "string"}}},
		},
	})

	fields := doc.ExperienceEvents[0].Fields
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if fields[0].Name != "_id" || fields[1].Name != "timestamp" {
		t.Errorf("standard fields not prepended: %s, %s", fields[0].Name, fields[1].Name)
	}
	if fields[1].Type != "xdm:date-time" {
		t.Errorf("timestamp type = %q", fields[1].Type)
	}
}

func TestRenderSchemaIDsDisambiguateDuplicates(t *testing.T) {
	doc := render(t, &spec.CanonicalSpec{
		Metadata: spec.Metadata{Title: "Plan"},
		Events:   []spec.Event{{Name: "Page Viewed"}, {Name: "Page Viewed"}},
	})

	a, b := doc.ExperienceEvents[0].ID, doc.ExperienceEvents[1].ID
	if a == b {
		t.Errorf("duplicate event names produced identical ids: %s", a)
	}
	if !strings.Contains(a, "myorg") {
		t.Errorf("schema id missing org: %s", a)
	}
}

func TestIdentityNamespaceAndPrimary(t *testing.T) {
	doc := render(t, &spec.CanonicalSpec{
		Metadata: spec.Metadata{Title: "Plan"},
		Events: []spec.Event{
			{
				Name: "Login",
				Properties: []spec.Property{
					{Name: "user_id", Type: "string"},
					{Name: "email", Type: "string"},
					{Name: "plan_tier", Type: "string"},
				},
				Identity: spec.Identity{Primary: "user_id", Secondary: []string{"email"}},
			},
		},
	})

	fields := doc.ExperienceEvents[0].Fields[2:] // skip standard fields
	if fields[0].IdentityNamespace != "USERID" || !fields[0].IsPrimary {
		t.Errorf("user_id field = %+v", fields[0])
	}
	if fields[1].IdentityNamespace != "EMAIL" || fields[1].IsPrimary {
		t.Errorf("email field = %+v", fields[1])
	}
	if fields[2].IdentityNamespace != "" {
		t.Errorf("plan_tier should have no namespace, got %q", fields[2].IdentityNamespace)
	}

	im := doc.ExperienceEvents[0].IdentityMap
	if entries := im["USERID"]; len(entries) != 1 || !entries[0].Primary || entries[0].AuthenticatedState != "authenticated" {
		t.Errorf("USERID entries = %+v", entries)
	}
	if entries := im["EMAIL"]; len(entries) != 1 || entries[0].Primary || entries[0].AuthenticatedState != "ambiguous" {
		t.Errorf("EMAIL entries = %+v", entries)
	}
}

func TestIdentityFallbackECID(t *testing.T) {
	doc := render(t, &spec.CanonicalSpec{
		Metadata: spec.Metadata{Title: "Plan"},
		Events:   []spec.Event{{Name: "Page Viewed"}},
	})

	im := doc.ExperienceEvents[0].IdentityMap
	if len(im) != 1 {
		t.Fatalf("expected exactly one identity entry, got %v", im)
	}
	entries, ok := im["ECID"]
	if !ok || len(entries) != 1 {
		t.Fatalf("expected single ECID entry, got %v", im)
	}
	if !entries[0].Primary || entries[0].AuthenticatedState != "ambiguous" {
		t.Errorf("ECID entry = %+v", entries[0])
	}
}

func TestSensitivityLabels(t *testing.T) {
	tests := []struct {
		in   spec.Classification
		want string
	}{
		{"high", "S1"},
		{"medium", "S2"},
		{"low", "S3"},
		{"none", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SensitivityLabel(tt.in); got != tt.want {
			t.Errorf("SensitivityLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGovernanceAggregates(t *testing.T) {
	base := &spec.CanonicalSpec{
		Metadata: spec.Metadata{Title: "Plan"},
		Events: []spec.Event{
			{
				Name: "Login",
				Properties: []spec.Property{
					{Name: "user_id", Type: "string", PII: spec.PII{Classification: "low"}},
				},
				Identity: spec.Identity{Primary: "user_id"},
			},
		},
	}

	doc := render(t, base)
	if doc.DataGovernance.ConsentRequired {
		t.Error("low PII should not require consent")
	}
	if doc.DataGovernance.RetentionDays != 90 {
		t.Errorf("retention = %d, want 90", doc.DataGovernance.RetentionDays)
	}
	if len(doc.DataGovernance.Labels) != 1 || doc.DataGovernance.Labels[0] != "S3" {
		t.Errorf("labels = %v, want [S3]", doc.DataGovernance.Labels)
	}

	base.Events[0].Properties[0].PII.Classification = "high"
	doc = render(t, base)
	if !doc.DataGovernance.ConsentRequired {
		t.Error("high PII should require consent")
	}
	if doc.DataGovernance.RetentionDays != 30 {
		t.Errorf("retention = %d, want 30", doc.DataGovernance.RetentionDays)
	}
	if doc.ExperienceEvents[0].Fields[2].SensitivityLabel != "S1" {
		t.Errorf("field label = %q, want S1", doc.ExperienceEvents[0].Fields[2].SensitivityLabel)
	}
}

func TestIdentityGraphUnion(t *testing.T) {
	doc := render(t, &spec.CanonicalSpec{
		Metadata: spec.Metadata{Title: "Plan"},
		Events: []spec.Event{
			{Name: "Login", Identity: spec.Identity{Primary: "user_id"}},
			{Name: "Search", Identity: spec.Identity{Secondary: []string{"user_id", "email"}}},
		},
	})

	got := map[string]bool{}
	for _, ns := range doc.IdentityGraph.Namespaces {
		got[ns.Code] = ns.Primary
	}
	if len(got) != 2 {
		t.Fatalf("namespaces = %+v", doc.IdentityGraph.Namespaces)
	}
	// USERID is primary somewhere, so it stays primary in the union.
	if !got["USERID"] {
		t.Error("USERID should be primary in the identity graph")
	}
	if got["EMAIL"] {
		t.Error("EMAIL should not be primary")
	}
}

func TestRenderDeterministic(t *testing.T) {
	a := New("myorg")
	a.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	s := &spec.CanonicalSpec{
		Metadata: spec.Metadata{Title: "Plan"},
		Events: []spec.Event{
			{
				Name: "Login",
				Properties: []spec.Property{
					{Name: "user_id", PII: spec.PII{Classification: "medium"}},
					{Name: "email", PII: spec.PII{Classification: "high"}},
				},
				Identity: spec.Identity{Primary: "user_id", Secondary: []string{"email"}},
			},
			{Name: "Page Viewed"},
		},
	}

	first, err := a.Render(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := a.Render(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("renders of the same spec differ")
	}
}

func TestSchemasAndDatasetsDerived(t *testing.T) {
	doc := render(t, &spec.CanonicalSpec{
		Metadata: spec.Metadata{Title: "Plan"},
		Events:   []spec.Event{{Name: "A"}, {Name: "B"}},
	})

	if len(doc.Schemas) != 2 || len(doc.Datasets) != 2 {
		t.Fatalf("schemas/datasets = %d/%d, want 2/2", len(doc.Schemas), len(doc.Datasets))
	}
	for i := range doc.Schemas {
		if doc.Schemas[i].ID != doc.ExperienceEvents[i].ID {
			t.Errorf("schema %d id mismatch", i)
		}
		if doc.Datasets[i].SchemaRef != doc.Schemas[i].ID {
			t.Errorf("dataset %d schemaRef mismatch", i)
		}
	}
}
