// Package processor orchestrates the event tagging pipeline. Each event
// flows through a fixed stage sequence: input validation, prompt
// generation, the model call, output parsing, confidence scoring, and the
// human review decision. Failures in the first three stages are terminal
// for the event; a response the parser cannot understand is recorded as an
// invalid prediction, not an error.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkrogh/eventtag/internal/domain"
	"github.com/mkrogh/eventtag/internal/llm"
	"github.com/mkrogh/eventtag/internal/registry"
	"github.com/mkrogh/eventtag/internal/stage"
)

// Stage names used in error classification and logs.
const (
	StageValidate   = "validate"
	StagePrompt     = "prompt"
	StageComplete   = "complete"
	StageParse      = "parse"
	StageConfidence = "confidence"
	StageReview     = "review"
)

// Config controls per-request model parameters.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Deps carries the pipeline collaborators. All fields are required except
// Pricing and Logger.
type Deps struct {
	Validator  stage.InputValidator
	Prompter   stage.PromptGenerator
	Client     llm.Client
	Parser     stage.OutputParser
	Confidence stage.ConfidenceEvaluator
	Review     stage.ReviewChecker
	Registry   *registry.Registry
	Pricing    *llm.PricingRegistry
	Logger     *slog.Logger
}

// Processor runs single events and batches through the pipeline.
type Processor struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
}

// New builds a processor. It returns an error when a required collaborator
// is missing.
func New(deps Deps, cfg Config) (*Processor, error) {
	switch {
	case deps.Validator == nil:
		return nil, errors.New("processor: Validator is required")
	case deps.Prompter == nil:
		return nil, errors.New("processor: Prompter is required")
	case deps.Client == nil:
		return nil, errors.New("processor: Client is required")
	case deps.Parser == nil:
		return nil, errors.New("processor: Parser is required")
	case deps.Confidence == nil:
		return nil, errors.New("processor: Confidence is required")
	case deps.Review == nil:
		return nil, errors.New("processor: Review is required")
	case deps.Registry == nil:
		return nil, errors.New("processor: Registry is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{deps: deps, cfg: cfg, logger: logger.With("component", "processor")}, nil
}

// ProcessEvent runs one event through the full stage sequence. The returned
// result always carries the event ID and elapsed time; it never panics on
// malformed input.
func (p *Processor) ProcessEvent(ctx context.Context, rec domain.EventRecord) (res domain.ProcessingResult) {
	start := time.Now()
	res = domain.ProcessingResult{EventID: rec.ID, Status: domain.StatusSuccess}
	defer func() { res.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000 }()

	if p.deps.Registry.Len() == 0 {
		return p.fail(res, StageValidate, domain.FailureValidation, domain.ErrNoTagsAvailable)
	}

	cleaned, err := p.deps.Validator.Validate(rec)
	if err != nil {
		return p.fail(res, StageValidate, domain.FailureValidation, err)
	}

	tags := p.deps.Registry.Names()
	payload := p.deps.Prompter.Generate(cleaned, tags)

	resp, err := p.deps.Client.Complete(ctx, &llm.Request{
		Prompt:      payload.Prompt,
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		TraceID:     rec.ID,
	})
	if err != nil {
		return p.fail(res, StageComplete, domain.FailureUpstream, err)
	}
	res.TokensUsed = resp.TokensUsed
	if p.deps.Pricing != nil {
		res.Cost = p.deps.Pricing.Cost(resp.Model, resp.TokensUsed)
	}

	parsed := p.deps.Parser.Parse(resp.Content, payload.AvailableTags)

	confidence, err := p.deps.Confidence.Score(parsed)
	if err != nil {
		return p.fail(res, StageConfidence, domain.FailureComputation, err)
	}

	res.Prediction = &domain.EvaluatedPrediction{
		ParsedTagResult: parsed,
		FinalConfidence: confidence,
		NeedsReview:     p.deps.Review.NeedsReview(parsed, confidence),
	}

	if !parsed.IsValid {
		p.logger.Warn("model output rejected by parser",
			"event_id", rec.ID, "reason", parsed.Error)
	}
	return res
}

// ProcessBatch runs events sequentially and aggregates a batch summary.
func (p *Processor) ProcessBatch(ctx context.Context, recs []domain.EventRecord) domain.BatchResult {
	start := time.Now()
	batch := domain.BatchResult{
		BatchID: uuid.NewString(),
		Results: make([]domain.ProcessingResult, 0, len(recs)),
	}

	var confidenceSum float64
	for _, rec := range recs {
		res := p.ProcessEvent(ctx, rec)
		batch.Results = append(batch.Results, res)

		batch.Summary.Total++
		if res.Failed() {
			batch.Summary.Failed++
			continue
		}
		batch.Summary.Succeeded++
		if res.Prediction != nil {
			confidenceSum += res.Prediction.FinalConfidence
			if res.Prediction.NeedsReview {
				batch.Summary.NeedsReview++
			}
		}
	}

	batch.Summary.TotalElapsedMs = float64(time.Since(start).Microseconds()) / 1000
	if batch.Summary.Succeeded > 0 {
		batch.Summary.AverageConfidence = confidenceSum / float64(batch.Summary.Succeeded)
	}

	p.logger.Info("batch processed",
		"batch_id", batch.BatchID,
		"total", batch.Summary.Total,
		"failed", batch.Summary.Failed,
		"needs_review", batch.Summary.NeedsReview)
	return batch
}

func (p *Processor) fail(res domain.ProcessingResult, stageName string, kind domain.FailureKind, err error) domain.ProcessingResult {
	stageErr := domain.NewStageError(stageName, kind, err)
	res.Status = domain.StatusError
	res.Prediction = nil
	res.ErrorKind = kind
	res.ErrorMessage = stageErr.Error()

	p.logger.Error("event processing failed",
		"event_id", res.EventID,
		"stage", stageName,
		"kind", string(kind),
		"error", err)
	return res
}
