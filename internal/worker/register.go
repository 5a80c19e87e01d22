// Package worker exposes helpers to register workflows and activities with
// a Temporal worker.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/mkrogh/eventtag/internal/activity"
	"github.com/mkrogh/eventtag/internal/workflow"
)

// RegisterAll registers the submission workflow and its activities. Must be
// called once during worker startup before the worker runs.
func RegisterAll(w sdkworker.Worker, acts *activity.Activities) {
	w.RegisterWorkflow(workflow.SubmissionWorkflow)
	w.RegisterActivity(acts.EvaluateDataset)
	w.RegisterActivity(acts.SubmitRun)
}
