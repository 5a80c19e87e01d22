// Command worker runs the Temporal worker hosting the submission workflow.
package main

import (
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/mkrogh/eventtag/internal/config"
	"github.com/mkrogh/eventtag/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)

	acts, err := worker.InitializeActivities(cfg, logger)
	if err != nil {
		logger.Error("worker initialization failed", "error", err)
		os.Exit(1)
	}

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalHostPort})
	if err != nil {
		logger.Error("temporal connection failed", "error", err, "host_port", cfg.TemporalHostPort)
		os.Exit(1)
	}
	defer c.Close()

	w := sdkworker.New(c, cfg.TaskQueue, sdkworker.Options{})
	worker.RegisterAll(w, acts)

	logger.Info("worker starting", "task_queue", cfg.TaskQueue)
	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
