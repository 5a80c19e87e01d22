// Package stage defines the pluggable pipeline stage contracts and their
// default implementations. The orchestrator depends only on these interfaces,
// so a stub and a full implementation are interchangeable without touching
// orchestration logic.
package stage

import "github.com/mkrogh/eventtag/internal/domain"

// InputValidator cleans and validates an event record. It returns a cleaned
// copy, or an error when a required field is malformed or the content is
// screened out. Validation failures are terminal for the event.
type InputValidator interface {
	Validate(rec domain.EventRecord) (domain.EventRecord, error)
}

// PromptGenerator builds the tagging prompt from a cleaned record and the
// tag vocabulary snapshot taken at generation time.
type PromptGenerator interface {
	Generate(rec domain.EventRecord, availableTags []string) domain.PromptPayload
}

// OutputParser converts raw model text into a ParsedTagResult. It never
// fails: malformed content yields IsValid=false with a descriptive message so
// the pipeline degrades gracefully instead of aborting.
type OutputParser interface {
	Parse(content string, availableTags []string) domain.ParsedTagResult
}

// ConfidenceEvaluator computes the final confidence score from a parsed
// result. Pure and deterministic; the returned value is always in [0,1].
// An error indicates a contract violation (structurally invalid input),
// never a low-quality prediction — invalid-but-well-formed results still
// produce a deterministic zero score.
type ConfidenceEvaluator interface {
	Score(res domain.ParsedTagResult) (float64, error)
}

// ReviewChecker decides whether a prediction needs human review. Pure and
// deterministic function of its inputs plus the configured threshold.
type ReviewChecker interface {
	NeedsReview(res domain.ParsedTagResult, confidence float64) bool
}
