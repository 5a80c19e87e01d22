// Package domain holds the value objects shared across the tagging
// pipeline. Types here carry no behavior beyond validation and small
// accessors; stages communicate exclusively through them.
package domain

import "strings"

// Status reports whether an event made it through the pipeline.
type Status string

const (
	// StatusSuccess means the pipeline produced a prediction, valid or not.
	StatusSuccess Status = "success"

	// StatusError means the pipeline aborted before producing a prediction.
	StatusError Status = "error"
)

// EventRecord is one event offer as received from the catalog export or the
// API. Only Title is required; everything else enriches the prompt.
type EventRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title" validate:"required,min=3,max=500"`
	Organizer   string `json:"organizer,omitempty"`
	Subtype     string `json:"subtype,omitempty"`
	Teaser      string `json:"teaser,omitempty"`
	Description string `json:"description,omitempty"`
}

// Validate checks the record against its structural constraints.
func (e *EventRecord) Validate() error { return validate.Struct(e) }

// CombinedText returns the lowercased concatenation of the free-text fields,
// used for keyword screening.
func (e EventRecord) CombinedText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{e.Title, e.Teaser, e.Description} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// HasDescription reports whether the record carries a long-form description.
func (e EventRecord) HasDescription() bool { return strings.TrimSpace(e.Description) != "" }

// PromptPayload is the rendered prompt plus the tag snapshot it was built
// from. The snapshot travels with the prompt so parsing validates against
// the same tag set the model was shown.
type PromptPayload struct {
	Prompt        string
	AvailableTags []string
}
