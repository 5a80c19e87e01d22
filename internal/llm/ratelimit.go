package llm

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

var (
	errRatePerSecondInvalid = errors.New("RequestsPerSecond must be greater than 0")
	errBurstInvalid         = errors.New("Burst must be greater than 0")
)

// NewRateLimitMiddleware creates client-side rate limiting middleware using
// a token bucket. Requests block until a token is available or the context
// is done, so upstream rate-limit responses stay rare instead of routine.
func NewRateLimitMiddleware(cfg RateLimitConfig) (Middleware, error) {
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("%w, got %f", errRatePerSecondInvalid, cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		return nil, fmt.Errorf("%w, got %d", errBurstInvalid, cfg.Burst)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter wait: %w", err)
			}
			return next.Handle(ctx, req)
		})
	}, nil
}
