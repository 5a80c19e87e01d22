package domain

// ParsedTagResult is the structured form of one model response. A response
// the parser cannot understand still yields a result with IsValid false;
// parse failures are data, not errors.
type ParsedTagResult struct {
	Tag1 string `json:"tag1"`
	Tag2 string `json:"tag2,omitempty"`
	Tag3 string `json:"tag3,omitempty"`

	// Confidence is the model's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`

	Reasoning string `json:"reasoning,omitempty"`

	// IsValid is false when the response could not be parsed or named tags
	// outside the allowed set. Error then says why.
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

// InvalidTagResult builds the canonical parse-failure value.
func InvalidTagResult(msg string) ParsedTagResult {
	return ParsedTagResult{IsValid: false, Error: msg}
}

// Tags returns the non-empty predicted tags in rank order.
func (r ParsedTagResult) Tags() []string {
	tags := make([]string, 0, 3)
	for _, t := range []string{r.Tag1, r.Tag2, r.Tag3} {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// EvaluatedPrediction is a parsed result with its final confidence score and
// the human review decision attached.
type EvaluatedPrediction struct {
	ParsedTagResult

	// FinalConfidence is the scored confidence in [0,1]. Always 0 for
	// invalid results.
	FinalConfidence float64 `json:"final_confidence"`

	NeedsReview bool `json:"needs_review"`
}

// ProcessingResult is the complete outcome of running one event through the
// pipeline.
type ProcessingResult struct {
	EventID string `json:"event_id"`
	Status  Status `json:"status"`

	// Prediction is nil exactly when Status is StatusError.
	Prediction *EvaluatedPrediction `json:"prediction,omitempty"`

	ElapsedMs  float64  `json:"elapsed_ms"`
	TokensUsed int64    `json:"tokens_used"`
	Cost       MilliOre `json:"cost_milliore"`

	// ErrorKind and ErrorMessage are set exactly when Status is StatusError.
	ErrorKind    FailureKind `json:"error_kind,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// Failed reports whether the pipeline aborted for this event.
func (r ProcessingResult) Failed() bool { return r.Status == StatusError }

// BatchSummary aggregates one batch run.
type BatchSummary struct {
	Total       int `json:"total"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	NeedsReview int `json:"needs_review"`

	TotalElapsedMs float64 `json:"total_elapsed_ms"`

	// AverageConfidence is the mean final confidence over succeeded events.
	AverageConfidence float64 `json:"average_confidence"`
}

// BatchResult is the outcome of one batch run, results in input order.
type BatchResult struct {
	BatchID string             `json:"batch_id"`
	Results []ProcessingResult `json:"results"`
	Summary BatchSummary       `json:"summary"`
}
