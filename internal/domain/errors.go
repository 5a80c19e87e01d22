package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidEvent indicates that an event record failed input validation.
var ErrInvalidEvent = errors.New("invalid event record")

// ErrSensitiveContent indicates that an event was screened out for
// containing sensitive content and must not be sent to the model.
var ErrSensitiveContent = errors.New("event contains sensitive content")

// ErrNoTagsAvailable indicates that the tag registry is empty, which makes
// prompt generation impossible.
var ErrNoTagsAvailable = errors.New("no tags available")

// ErrComputation indicates that a pure stage received structurally invalid
// input outside its declared contract. This is a programming error, not a
// recoverable runtime condition.
var ErrComputation = errors.New("stage contract violation")

// FailureKind classifies why the pipeline aborted for a single event.
// Parse failures are deliberately absent: malformed model output is carried
// as data on ParsedTagResult so downstream stages still run.
type FailureKind string

const (
	// FailureValidation marks malformed or screened-out input. Terminal for
	// the event, surfaced to the caller as a rejected request, never retried.
	FailureValidation FailureKind = "validation"

	// FailureUpstream marks an external model call failure. Terminal at the
	// orchestrator layer; retry policy, if any, lives inside the LLM client.
	FailureUpstream FailureKind = "upstream"

	// FailureComputation marks a stage contract violation.
	FailureComputation FailureKind = "computation"
)

// StageError records which pipeline stage failed and how. It lets callers
// distinguish "the stage could not run at all" from the parse-failure-as-data
// path without string matching.
type StageError struct {
	Stage string
	Kind  FailureKind
	Err   error
}

// NewStageError wraps err with the failing stage and its failure class.
func NewStageError(stage string, kind FailureKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
