package spec

import (
	"fmt"
	"strings"
)

// Markdown renders a canonical spec as a human-readable document for review
// alongside the stored record. The output is deterministic.
func Markdown(s *CanonicalSpec) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.Metadata.Title)
	if s.Metadata.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", s.Metadata.Description)
	}
	if s.Metadata.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n\n", s.Metadata.Version)
	}

	for _, ev := range s.Events {
		fmt.Fprintf(&b, "## %s\n\n", ev.Name)
		if ev.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", ev.Description)
		}
		if ev.Trigger != "" {
			fmt.Fprintf(&b, "Trigger: %s\n\n", ev.Trigger)
		}

		if len(ev.Properties) > 0 {
			b.WriteString("| Property | Type | Required | PII | Description |\n")
			b.WriteString("|----------|------|----------|-----|-------------|\n")
			for _, p := range ev.Properties {
				fmt.Fprintf(&b, "| %s | %s | %t | %s | %s |\n",
					p.Name, NormalizeType(p.Type), p.Required,
					p.PII.Classification.Normalize(), p.Description)
			}
			b.WriteString("\n")
		}

		writeList(&b, "Business rules", ev.BusinessRules)
		writeList(&b, "Technical rules", ev.TechnicalRules)
	}

	if len(s.Destinations) > 0 {
		b.WriteString("## Destinations\n\n")
		for _, d := range s.Destinations {
			if d.Requirements != "" {
				fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Requirements)
			} else {
				fmt.Fprintf(&b, "- %s\n", d.Name)
			}
		}
		b.WriteString("\n")
	}

	writeList(&b, "Acceptance criteria", s.AcceptanceCriteria)
	writeList(&b, "Open questions", s.OpenQuestions)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
