// Command server runs the HTTP API for event tagging and evaluation.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mkrogh/eventtag/internal/api"
	"github.com/mkrogh/eventtag/internal/config"
	"github.com/mkrogh/eventtag/internal/dataset"
	"github.com/mkrogh/eventtag/internal/evaluation"
	"github.com/mkrogh/eventtag/internal/llm"
	"github.com/mkrogh/eventtag/internal/processor"
	"github.com/mkrogh/eventtag/internal/stage"
	"github.com/mkrogh/eventtag/internal/submission"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)

	srv, err := buildServer(cfg, logger)
	if err != nil {
		logger.Error("server initialization failed", "error", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", cfg.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}

func buildServer(cfg *config.Config, logger *slog.Logger) (*api.Server, error) {
	reg, err := dataset.LoadTagRules(filepath.Join(cfg.DataDir, "tag_rules.csv"))
	if err != nil {
		return nil, err
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.APIKey = cfg.OpenAIAPIKey
	llmCfg.DefaultModel = cfg.Model
	llmCfg.HTTPTimeout = cfg.HTTPTimeout
	llmCfg.Cache.Addr = cfg.RedisAddr
	llmCfg.Logger = logger
	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, err
	}

	proc, err := processor.New(processor.Deps{
		Validator:  stage.NewCleaningValidator(nil),
		Prompter:   stage.NewTemplatePromptGenerator(reg),
		Client:     client,
		Parser:     stage.NewJSONOutputParser(),
		Confidence: stage.NewModelConfidenceEvaluator(),
		Review:     stage.NewThresholdReviewChecker(cfg.ConfidenceThreshold, cfg.HumanReviewThreshold),
		Registry:   reg,
		Pricing:    llm.NewPricingRegistry(cfg.CostRatePer1000),
		Logger:     logger,
	}, processor.Config{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	engineCfg := evaluation.DefaultConfig()
	engineCfg.Weights = cfg.AccuracyWeights
	engineCfg.ConfusionTopN = cfg.ConfusionTopN
	engineCfg.BatchThreshold = cfg.BatchThreshold
	engineCfg.Concurrency = cfg.Concurrency
	engine, err := evaluation.New(proc, engineCfg, logger)
	if err != nil {
		return nil, err
	}

	var submitter *submission.Client
	if cfg.DashboardURL != "" {
		submitter = submission.New(cfg.DashboardURL, nil, logger)
	}

	return api.New(api.Deps{
		Processor: proc,
		Engine:    engine,
		Registry:  reg,
		Submitter: submitter,
		DataDir:   cfg.DataDir,
		TeamName:  cfg.TeamName,
		Model:     cfg.Model,
		Logger:    logger,
	})
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
