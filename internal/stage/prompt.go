package stage

import (
	"strings"

	"github.com/mkrogh/eventtag/internal/domain"
	"github.com/mkrogh/eventtag/internal/registry"
)

// TemplatePromptGenerator is the default PromptGenerator. It renders a fixed
// instruction template listing the allowed tags with their rule descriptions,
// followed by the event's fields. The registry is consulted only for tag
// metadata; the allowed-tag list itself is the snapshot passed by the caller.
type TemplatePromptGenerator struct {
	reg *registry.Registry
}

// NewTemplatePromptGenerator builds a prompt generator over the given registry.
func NewTemplatePromptGenerator(reg *registry.Registry) *TemplatePromptGenerator {
	return &TemplatePromptGenerator{reg: reg}
}

// Generate implements PromptGenerator.
func (g *TemplatePromptGenerator) Generate(rec domain.EventRecord, availableTags []string) domain.PromptPayload {
	var b strings.Builder

	b.WriteString("You are an expert at categorizing events. ")
	b.WriteString("Assign up to three tags to the event below, ordered from most to least likely.\n\n")
	b.WriteString("Allowed tags:\n")
	for _, tag := range availableTags {
		b.WriteString("- ")
		b.WriteString(tag)
		if rule, ok := g.reg.Rule(tag); ok && rule.Description != "" {
			b.WriteString(": ")
			b.WriteString(rule.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nEvent:\n")
	writeField(&b, "Title", rec.Title)
	writeField(&b, "Organizer", rec.Organizer)
	writeField(&b, "Type", rec.Subtype)
	writeField(&b, "Teaser", rec.Teaser)
	writeField(&b, "Description", rec.Description)

	b.WriteString("\nAnswer with a single JSON object and nothing else:\n")
	b.WriteString(`{"TAG1": "<most likely tag>", "TAG2": "<optional>", "TAG3": "<optional>", ` +
		`"CONFIDENCE": <0.0-1.0>, "REASONING": "<one short sentence>"}` + "\n")
	b.WriteString("Every tag must come from the allowed list. Omit TAG2/TAG3 rather than guessing.\n")

	// Copy the snapshot so later registry reads by the caller cannot alias it.
	tags := make([]string, len(availableTags))
	copy(tags, availableTags)

	return domain.PromptPayload{Prompt: b.String(), AvailableTags: tags}
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}
