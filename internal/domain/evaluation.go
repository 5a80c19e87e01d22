package domain

// GroundTruthRecord carries the reference tags for one labeled event.
// The first tag is the primary category; order is otherwise not significant
// for containment matching.
type GroundTruthRecord struct {
	EventID string   `json:"event_id"`
	Tags    []string `json:"tags" validate:"required,min=1,dive,required"`
}

// Validate checks the record against its structural constraints.
func (g *GroundTruthRecord) Validate() error { return validate.Struct(g) }

// Primary returns the first ground-truth tag, or "" when the record is empty.
func (g GroundTruthRecord) Primary() string {
	if len(g.Tags) == 0 {
		return ""
	}
	return g.Tags[0]
}

// Contains reports whether tag is one of the reference tags.
func (g GroundTruthRecord) Contains(tag string) bool {
	for _, t := range g.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LabeledEvent pairs an event with its ground truth for evaluation runs.
type LabeledEvent struct {
	Event EventRecord       `json:"event"`
	Truth GroundTruthRecord `json:"truth"`
}

// EvaluationRow pairs one ProcessingResult with its ground truth and the
// per-k correctness flags. Rows are returned in dataset order.
type EvaluationRow struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`

	Result ProcessingResult  `json:"result"`
	Truth  GroundTruthRecord `json:"truth"`

	// CorrectAtN is true when a ground-truth tag appears within the first
	// N predicted tags. Correctness is monotonic: CorrectAt1 implies
	// CorrectAt2 implies CorrectAt3.
	CorrectAt1 bool `json:"correct_at_1"`
	CorrectAt2 bool `json:"correct_at_2"`
	CorrectAt3 bool `json:"correct_at_3"`

	// ErrorMessage is non-empty when processing failed for this record.
	ErrorMessage string `json:"error_message,omitempty"`
}

// CorrectAt reports correctness at k for k in {1,2,3}.
func (r EvaluationRow) CorrectAt(k int) bool {
	switch k {
	case 1:
		return r.CorrectAt1
	case 2:
		return r.CorrectAt2
	case 3:
		return r.CorrectAt3
	default:
		return false
	}
}

// ConfusionPair counts how often the top-1 prediction mistook one tag for
// another. TruthTag is the primary ground-truth tag.
type ConfusionPair struct {
	TruthTag     string `json:"truth_tag"`
	PredictedTag string `json:"predicted_tag"`
	Count        int    `json:"count"`
}

// AggregateMetrics is the dataset-level rollup of an evaluation run.
// It is recomputed fresh on every run and never persisted.
type AggregateMetrics struct {
	AccuracyAt1 float64 `json:"accuracy_at_1"`
	AccuracyAt2 float64 `json:"accuracy_at_2"`
	AccuracyAt3 float64 `json:"accuracy_at_3"`

	// WeightedAccuracy is a convex combination of the per-k accuracies.
	WeightedAccuracy float64 `json:"weighted_accuracy"`

	ExactMatchAt1 float64 `json:"exact_match_at_1"`
	ExactMatchAt2 float64 `json:"exact_match_at_2"`
	ExactMatchAt3 float64 `json:"exact_match_at_3"`

	// Micro-averaged tag-level precision, recall, and F1.
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`

	// AverageConfidence is the mean final confidence over records that
	// produced a result. Failed records are excluded, not counted as zero.
	AverageConfidence float64 `json:"average_confidence"`

	TotalRecords   int `json:"total_records"`
	CorrectRecords int `json:"correct_records"`
	FailedRecords  int `json:"failed_records"`

	// MostConfused lists the most frequent (truth, predicted) top-1
	// mismatches, ties broken by first-encountered dataset order.
	MostConfused []ConfusionPair `json:"most_confused"`

	// PerCategoryAccuracy maps each primary ground-truth tag to its
	// accuracy@1. Categories with no records are absent, not zero.
	PerCategoryAccuracy map[string]float64 `json:"per_category_accuracy"`

	BestCategories  []string `json:"best_categories"`
	WorstCategories []string `json:"worst_categories"`
}
