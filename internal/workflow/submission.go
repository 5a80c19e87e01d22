// Package workflow orchestrates leaderboard submissions using Temporal:
// evaluate the labeled dataset, then post the run. Workflow code uses
// workflow-safe APIs only.
package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/mkrogh/eventtag/internal/activity"
)

// TaskQueue is the default task queue for submission workflows.
const TaskQueue = "eventtag"

// SubmissionRequest starts a submission run.
type SubmissionRequest struct {
	TeamName string `json:"team_name"`
	Model    string `json:"model"`
	DataDir  string `json:"data_dir"`

	// Limit caps the number of labeled events, zero means all.
	Limit int `json:"limit"`

	// EvaluationTimeout bounds the evaluation activity. Zero uses the
	// default.
	EvaluationTimeout time.Duration `json:"evaluation_timeout"`
}

// Validate checks the request before any activity is scheduled.
func (r SubmissionRequest) Validate() error {
	if r.TeamName == "" {
		return errors.New("team_name is required")
	}
	if r.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if r.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

// SubmissionResult is the workflow outcome.
type SubmissionResult struct {
	Evaluation activity.EvaluateDatasetOutput `json:"evaluation"`
	Submission activity.SubmitRunOutput       `json:"submission"`
}

const defaultEvaluationTimeout = 30 * time.Minute

// SubmissionWorkflow evaluates the dataset and submits the run. The
// evaluation is the expensive step; its result is recorded in history, so a
// submission retry never re-runs the model calls.
func SubmissionWorkflow(ctx workflow.Context, req SubmissionRequest) (*SubmissionResult, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "submission.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid submission request",
			"Validation",
			err,
		)
	}

	evalTimeout := req.EvaluationTimeout
	if evalTimeout <= 0 {
		evalTimeout = defaultEvaluationTimeout
	}

	retryPolicy := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    3,
	}

	var a *activity.Activities

	evalCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: evalTimeout,
		RetryPolicy:         retryPolicy,
	})
	var evalOut activity.EvaluateDatasetOutput
	if err := workflow.ExecuteActivity(evalCtx, a.EvaluateDataset, activity.EvaluateDatasetInput{
		DataDir: req.DataDir,
		Limit:   req.Limit,
	}).Get(ctx, &evalOut); err != nil {
		return nil, err
	}

	submitCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         retryPolicy,
	})
	var submitOut activity.SubmitRunOutput
	if err := workflow.ExecuteActivity(submitCtx, a.SubmitRun, activity.SubmitRunInput{
		TeamName:   req.TeamName,
		Model:      req.Model,
		Evaluation: evalOut,
	}).Get(ctx, &submitOut); err != nil {
		return nil, err
	}

	return &SubmissionResult{Evaluation: evalOut, Submission: submitOut}, nil
}
