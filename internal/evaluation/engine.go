// Package evaluation runs labeled datasets through the tagging pipeline and
// computes aggregate quality metrics. A single failed event never aborts a
// run: failures are recorded per row and count against accuracy.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/mkrogh/eventtag/internal/domain"
	"github.com/mkrogh/eventtag/internal/processor"
)

// Default engine configuration values.
const (
	DefaultConfusionTopN   = 5
	DefaultCategoryTopN    = 3
	DefaultBatchThreshold  = 20
	DefaultConcurrency     = 4
	maxPredictionRankDepth = 3
)

// DefaultWeights is the convex weighting over rank-1 through rank-3
// accuracy used for the headline score.
var DefaultWeights = [3]float64{0.5, 0.3, 0.2}

// Config controls evaluation behavior.
type Config struct {
	// Weights combines accuracy at ranks 1..3 into the weighted accuracy.
	// Must be non-negative and sum to 1.
	Weights [3]float64

	// ConfusionTopN bounds the reported most-confused pairs.
	ConfusionTopN int

	// CategoryTopN bounds the reported best and worst category lists.
	CategoryTopN int

	// BatchThreshold is the dataset size above which events are processed
	// concurrently.
	BatchThreshold int

	// Concurrency bounds in-flight events in concurrent mode.
	Concurrency int
}

// DefaultConfig returns the production evaluation configuration.
func DefaultConfig() Config {
	return Config{
		Weights:        DefaultWeights,
		ConfusionTopN:  DefaultConfusionTopN,
		CategoryTopN:   DefaultCategoryTopN,
		BatchThreshold: DefaultBatchThreshold,
		Concurrency:    DefaultConcurrency,
	}
}

// Validate checks structural config invariants.
func (c Config) Validate() error {
	var sum float64
	for i, w := range c.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is %v", domain.ErrComputation, i+1, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %v, want 1", domain.ErrComputation, sum)
	}
	if c.ConfusionTopN < 0 || c.CategoryTopN < 0 {
		return fmt.Errorf("%w: negative top-N", domain.ErrComputation)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency %d", domain.ErrComputation, c.Concurrency)
	}
	return nil
}

// Report is the outcome of one evaluation run.
type Report struct {
	Rows    []domain.EvaluationRow
	Metrics domain.AggregateMetrics
}

// Engine evaluates labeled datasets.
type Engine struct {
	proc   *processor.Processor
	cfg    Config
	logger *slog.Logger
}

// New builds an engine around a processor.
func New(proc *processor.Processor, cfg Config, logger *slog.Logger) (*Engine, error) {
	if proc == nil {
		return nil, errors.New("evaluation: processor is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{proc: proc, cfg: cfg, logger: logger.With("component", "evaluation")}, nil
}

// Evaluate processes every labeled event and aggregates metrics. Row order
// always matches input order, so repeated runs over the same predictions
// produce identical reports regardless of processing mode.
func (e *Engine) Evaluate(ctx context.Context, dataset []domain.LabeledEvent) (*Report, error) {
	if len(dataset) == 0 {
		return nil, fmt.Errorf("%w: empty dataset", domain.ErrComputation)
	}
	for i, le := range dataset {
		if err := le.Truth.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", domain.ErrComputation, i, err)
		}
	}

	rows := make([]domain.EvaluationRow, len(dataset))

	if len(dataset) > e.cfg.BatchThreshold {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Concurrency)
		for i, le := range dataset {
			g.Go(func() error {
				rows[i] = e.evaluateOne(gctx, le)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, le := range dataset {
			rows[i] = e.evaluateOne(ctx, le)
		}
	}

	metrics, err := Aggregate(rows, e.cfg)
	if err != nil {
		return nil, err
	}

	e.logger.Info("evaluation finished",
		"records", metrics.TotalRecords,
		"failed", metrics.FailedRecords,
		"accuracy_at_1", metrics.AccuracyAt1,
		"weighted_accuracy", metrics.WeightedAccuracy)
	return &Report{Rows: rows, Metrics: metrics}, nil
}

// evaluateOne runs a single labeled event and scores the prediction against
// the ground truth.
func (e *Engine) evaluateOne(ctx context.Context, le domain.LabeledEvent) domain.EvaluationRow {
	res := e.proc.ProcessEvent(ctx, le.Event)

	row := domain.EvaluationRow{
		EventID: le.Event.ID,
		Title:   le.Event.Title,
		Result:  res,
		Truth:   le.Truth,
	}
	if res.Failed() {
		row.ErrorMessage = res.ErrorMessage
		return row
	}

	depth := matchDepth(res.Prediction.Tags(), le.Truth)
	row.CorrectAt1 = depth > 0 && depth <= 1
	row.CorrectAt2 = depth > 0 && depth <= 2
	row.CorrectAt3 = depth > 0 && depth <= 3
	return row
}

// matchDepth returns the 1-based rank of the first prediction that is a
// ground-truth tag, or 0 when none of the first three match.
func matchDepth(preds []string, truth domain.GroundTruthRecord) int {
	for i, tag := range preds {
		if i >= maxPredictionRankDepth {
			break
		}
		if truth.Contains(tag) {
			return i + 1
		}
	}
	return 0
}
