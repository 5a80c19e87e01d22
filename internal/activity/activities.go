// Package activity implements the Temporal activities behind the submission
// workflow: evaluating the labeled dataset and posting the run to the
// leaderboard.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/mkrogh/eventtag/internal/dataset"
	"github.com/mkrogh/eventtag/internal/domain"
	"github.com/mkrogh/eventtag/internal/evaluation"
	"github.com/mkrogh/eventtag/internal/submission"
)

// Activities bundles the collaborators shared by all activities.
type Activities struct {
	engine    *evaluation.Engine
	submitter *submission.Client
	logger    *slog.Logger
}

// New builds the activity set.
func New(engine *evaluation.Engine, submitter *submission.Client, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{engine: engine, submitter: submitter, logger: logger.With("component", "activity")}
}

// EvaluateDatasetInput selects the dataset to evaluate.
type EvaluateDatasetInput struct {
	DataDir string `json:"data_dir"`

	// Limit caps the number of labeled events, zero means all.
	Limit int `json:"limit"`
}

// EvaluateDatasetOutput is the evaluation result passed between activities.
type EvaluateDatasetOutput struct {
	Metrics     domain.AggregateMetrics `json:"metrics"`
	TotalCost   domain.MilliOre         `json:"total_cost_milliore"`
	TotalTokens int64                   `json:"total_tokens"`
	RecordCount int                     `json:"record_count"`
}

// EvaluateDataset loads the labeled events and runs the evaluation engine.
// Dataset and contract problems are non-retryable; the engine itself
// tolerates per-event upstream failures, so a returned error here means the
// run as a whole is broken.
func (a *Activities) EvaluateDataset(ctx context.Context, in EvaluateDatasetInput) (*EvaluateDatasetOutput, error) {
	if in.DataDir == "" {
		return nil, nonRetryable("EvaluateDataset", nil, "data_dir is required")
	}

	labeled, err := dataset.LoadLabeledEvents(filepath.Join(in.DataDir, "labeled_events.csv"))
	if err != nil {
		return nil, nonRetryable("EvaluateDataset", err, "loading labeled events failed")
	}
	if in.Limit > 0 && in.Limit < len(labeled) {
		labeled = labeled[:in.Limit]
	}

	report, err := a.engine.Evaluate(ctx, labeled)
	if err != nil {
		if errors.Is(err, domain.ErrComputation) {
			return nil, nonRetryable("EvaluateDataset", err, "evaluation contract violation")
		}
		return nil, fmt.Errorf("evaluate dataset: %w", err)
	}

	out := &EvaluateDatasetOutput{
		Metrics:     report.Metrics,
		RecordCount: report.Metrics.TotalRecords,
	}
	for _, row := range report.Rows {
		out.TotalCost = out.TotalCost.Add(row.Result.Cost)
		out.TotalTokens += row.Result.TokensUsed
	}

	a.logger.Info("dataset evaluated",
		"records", out.RecordCount,
		"failed", report.Metrics.FailedRecords,
		"weighted_accuracy", report.Metrics.WeightedAccuracy)
	return out, nil
}

// SubmitRunInput carries the evaluated run and team identity.
type SubmitRunInput struct {
	TeamName   string                `json:"team_name"`
	Model      string                `json:"model"`
	Evaluation EvaluateDatasetOutput `json:"evaluation"`
}

// SubmitRunOutput echoes the dashboard response.
type SubmitRunOutput struct {
	Dashboard json.RawMessage `json:"dashboard"`
}

// SubmitRun posts the run to the leaderboard. Client and auth failures are
// non-retryable; transient dashboard failures propagate as retryable errors
// so the workflow retry policy can reattempt them.
func (a *Activities) SubmitRun(ctx context.Context, in SubmitRunInput) (*SubmitRunOutput, error) {
	if a.submitter == nil {
		return nil, nonRetryable("SubmitRun", nil, "no dashboard configured")
	}
	if in.TeamName == "" {
		return nil, nonRetryable("SubmitRun", nil, "team_name is required")
	}

	resp, err := a.submitter.Submit(ctx, submission.Request{
		TeamName:    in.TeamName,
		Model:       in.Model,
		Metrics:     in.Evaluation.Metrics,
		TotalCost:   in.Evaluation.TotalCost,
		TotalTokens: in.Evaluation.TotalTokens,
		RecordCount: in.Evaluation.RecordCount,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		var statusErr *submission.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, nonRetryable("SubmitRun", err, "dashboard rejected submission")
		}
		return nil, fmt.Errorf("submit run: %w", err)
	}
	return &SubmitRunOutput{Dashboard: resp}, nil
}

// nonRetryable wraps an error as a Temporal non-retryable application error.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}
