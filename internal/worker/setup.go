// Package worker provides initialization utilities executed during worker
// startup, keeping the activity package focused on activity logic.
package worker

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mkrogh/eventtag/internal/activity"
	"github.com/mkrogh/eventtag/internal/config"
	"github.com/mkrogh/eventtag/internal/dataset"
	"github.com/mkrogh/eventtag/internal/evaluation"
	"github.com/mkrogh/eventtag/internal/llm"
	"github.com/mkrogh/eventtag/internal/processor"
	"github.com/mkrogh/eventtag/internal/stage"
	"github.com/mkrogh/eventtag/internal/submission"
)

// TagRulesFile is the tag rule export name under the data directory.
const TagRulesFile = "tag_rules.csv"

// InitializeActivities builds the full pipeline behind the submission
// workflow: registry, stages, model client, processor, evaluation engine,
// and the leaderboard client.
func InitializeActivities(cfg *config.Config, logger *slog.Logger) (*activity.Activities, error) {
	reg, err := dataset.LoadTagRules(filepath.Join(cfg.DataDir, TagRulesFile))
	if err != nil {
		return nil, fmt.Errorf("load tag rules: %w", err)
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.APIKey = cfg.OpenAIAPIKey
	llmCfg.DefaultModel = cfg.Model
	llmCfg.HTTPTimeout = cfg.HTTPTimeout
	llmCfg.Cache.Addr = cfg.RedisAddr
	llmCfg.Logger = logger
	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize llm client: %w", err)
	}

	pricing := llm.NewPricingRegistry(cfg.CostRatePer1000)

	proc, err := processor.New(processor.Deps{
		Validator:  stage.NewCleaningValidator(nil),
		Prompter:   stage.NewTemplatePromptGenerator(reg),
		Client:     client,
		Parser:     stage.NewJSONOutputParser(),
		Confidence: stage.NewModelConfidenceEvaluator(),
		Review:     stage.NewThresholdReviewChecker(cfg.ConfidenceThreshold, cfg.HumanReviewThreshold),
		Registry:   reg,
		Pricing:    pricing,
		Logger:     logger,
	}, processor.Config{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize processor: %w", err)
	}

	engineCfg := evaluation.DefaultConfig()
	engineCfg.Weights = cfg.AccuracyWeights
	engineCfg.ConfusionTopN = cfg.ConfusionTopN
	engineCfg.BatchThreshold = cfg.BatchThreshold
	engineCfg.Concurrency = cfg.Concurrency
	engine, err := evaluation.New(proc, engineCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize evaluation engine: %w", err)
	}

	var submitter *submission.Client
	if cfg.DashboardURL != "" {
		submitter = submission.New(cfg.DashboardURL, nil, logger)
	}

	return activity.New(engine, submitter, logger), nil
}
