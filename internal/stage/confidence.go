package stage

import (
	"fmt"
	"math"

	"github.com/mkrogh/eventtag/internal/domain"
)

// ModelConfidenceEvaluator is the default ConfidenceEvaluator. The final
// score is the model-reported confidence clamped to [0,1]; invalid results
// and results without a primary tag score a deterministic zero so the
// review decision downstream is always reachable.
type ModelConfidenceEvaluator struct{}

// NewModelConfidenceEvaluator builds the default confidence evaluator.
func NewModelConfidenceEvaluator() *ModelConfidenceEvaluator {
	return &ModelConfidenceEvaluator{}
}

// Score implements ConfidenceEvaluator. The only error path is a structural
// contract violation (non-finite confidence), which indicates a bug in the
// parser, not a low-quality prediction.
func (e *ModelConfidenceEvaluator) Score(res domain.ParsedTagResult) (float64, error) {
	if math.IsNaN(res.Confidence) || math.IsInf(res.Confidence, 0) {
		return 0, fmt.Errorf("%w: non-finite confidence %v", domain.ErrComputation, res.Confidence)
	}
	if !res.IsValid || res.Tag1 == "" {
		return 0, nil
	}
	return clamp01(res.Confidence), nil
}

// ThresholdReviewChecker is the default ReviewChecker. Invalid results and
// results without a primary tag always need review, as does any score below
// the review threshold. Between the review threshold and the confidence
// threshold a prediction needs review only when the model hedged across
// more than one tag; a single tag in that band is accepted as-is.
type ThresholdReviewChecker struct {
	confidenceThreshold float64
	reviewThreshold     float64
}

// NewThresholdReviewChecker builds a review checker. confidenceThreshold is
// the score at which a prediction is accepted outright; reviewThreshold is
// the floor below which review is always required.
func NewThresholdReviewChecker(confidenceThreshold, reviewThreshold float64) *ThresholdReviewChecker {
	return &ThresholdReviewChecker{
		confidenceThreshold: confidenceThreshold,
		reviewThreshold:     reviewThreshold,
	}
}

// NeedsReview implements ReviewChecker.
func (c *ThresholdReviewChecker) NeedsReview(res domain.ParsedTagResult, confidence float64) bool {
	if !res.IsValid || res.Tag1 == "" {
		return true
	}
	if confidence < c.reviewThreshold {
		return true
	}
	return confidence < c.confidenceThreshold && res.Tag2 != ""
}
