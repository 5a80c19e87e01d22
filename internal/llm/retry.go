package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

var (
	errMaxAttemptsInvalid     = errors.New("MaxAttempts must be greater than 0")
	errInitialIntervalInvalid = errors.New("InitialInterval must be greater than 0")
	errMaxIntervalInvalid     = errors.New("MaxInterval must be >= InitialInterval")
	errMultiplierInvalid      = errors.New("Multiplier must be >= 1.0")
)

// NewRetryMiddleware creates retry middleware with exponential backoff and
// full jitter. Only failures classified as retryable are reattempted;
// provider Retry-After hints take precedence over the computed backoff.
func NewRetryMiddleware(cfg RetryConfig, logger *slog.Logger) (Middleware, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, cfg.MaxAttempts)
	}
	if cfg.InitialInterval <= 0 {
		return nil, fmt.Errorf("%w, got %v", errInitialIntervalInvalid, cfg.InitialInterval)
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		return nil, fmt.Errorf("%w, got %v < %v", errMaxIntervalInvalid, cfg.MaxInterval, cfg.InitialInterval)
	}
	if cfg.Multiplier < 1.0 {
		return nil, fmt.Errorf("%w, got %f", errMultiplierInvalid, cfg.Multiplier)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("middleware", "retry")

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			var lastErr error

			for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
				if cfg.MaxElapsedTime > 0 && time.Since(start) > cfg.MaxElapsedTime {
					break
				}

				resp, err := next.Handle(ctx, req)
				if err == nil {
					return resp, nil
				}
				lastErr = err

				var upErr *UpstreamError
				if !errors.As(err, &upErr) || !upErr.Retryable() {
					return nil, err
				}
				if attempt == cfg.MaxAttempts {
					break
				}

				delay := backoff(cfg, attempt)
				if ra := upErr.GetRetryAfter(); ra > 0 {
					delay = ra
				}

				logger.Warn("retrying upstream call",
					"attempt", attempt,
					"delay", delay,
					"error_type", upErr.Type,
					"trace_id", req.TraceID)

				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
				}
			}

			return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
		})
	}, nil
}

// backoff computes the delay before the given attempt using full jitter:
// a uniform draw over (0, interval] keeps concurrent clients from
// synchronizing their retries.
func backoff(cfg RetryConfig, attempt int) time.Duration {
	interval := float64(cfg.InitialInterval)
	for i := 1; i < attempt; i++ {
		interval *= cfg.Multiplier
		if interval >= float64(cfg.MaxInterval) {
			interval = float64(cfg.MaxInterval)
			break
		}
	}
	return time.Duration(rand.Float64() * interval)
}
