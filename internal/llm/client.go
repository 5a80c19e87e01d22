// Package llm provides a resilient HTTP client for the external language
// model. Provider adapters sit behind a composable middleware chain:
// observability → rate limiting → response cache → retry → provider.
// Retry policy lives entirely in this package; the orchestrator above it
// sees a single call that either succeeds or fails.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Default client configuration values.
const (
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 250 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
	DefaultMultiplier      = 2.0
	DefaultMaxElapsedTime  = 45 * time.Second
	DefaultRequestsPerSec  = 5.0
	DefaultBurstSize       = 10
	DefaultCacheTTL        = 24 * time.Hour
)

// Request is a normalized completion request.
type Request struct {
	// Prompt is the full rendered prompt text.
	Prompt string `json:"prompt"`

	// Model selects the provider model version.
	Model string `json:"model"`

	// Temperature and MaxTokens control generation behavior.
	Temperature float64 `json:"temperature"`
	MaxTokens   int64   `json:"max_tokens"`

	// TraceID correlates logs across the middleware chain. Optional.
	TraceID string `json:"trace_id,omitempty"`
}

// Response is the raw model output: opaque content plus usage accounting.
// It is created here and consumed only by the output parser.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason"`

	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TokensUsed       int64 `json:"tokens_used"`

	LatencyMs int64 `json:"latency_ms"`
}

// Client is the pipeline's model-call stage contract.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Handler processes a request. Provider adapters are terminal handlers;
// middleware wraps them.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware wraps a Handler with additional behavior.
type Middleware func(Handler) Handler

// Chain applies middlewares so that the first listed is outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Config holds the full client configuration.
type Config struct {
	// Provider selects the adapter. Currently "openai".
	Provider string

	// APIKey authenticates against the provider.
	APIKey string

	// Endpoint overrides the provider's default API base URL. Used in tests.
	Endpoint string

	// DefaultModel is used when a request does not name a model.
	DefaultModel string

	HTTPTimeout time.Duration
	HTTPClient  *http.Client

	Retry     RetryConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig

	Logger *slog.Logger
}

// RetryConfig controls exponential backoff for transient upstream failures.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

// RateLimitConfig controls the client-side request rate limiter.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// CacheConfig controls the Redis response cache. Caching is disabled when
// Addr is empty; cache errors degrade to a direct provider call.
type CacheConfig struct {
	Addr string
	TTL  time.Duration
}

// DefaultConfig returns a configuration with production defaults and
// caching disabled.
func DefaultConfig() *Config {
	return &Config{
		Provider:     ProviderOpenAI,
		DefaultModel: "gpt-4o",
		HTTPTimeout:  DefaultHTTPTimeout,
		Retry: RetryConfig{
			MaxAttempts:     DefaultMaxAttempts,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
			Multiplier:      DefaultMultiplier,
			MaxElapsedTime:  DefaultMaxElapsedTime,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: DefaultRequestsPerSec,
			Burst:             DefaultBurstSize,
		},
		Cache: CacheConfig{TTL: DefaultCacheTTL},
	}
}

// client wraps the assembled handler chain behind the Client interface.
type client struct {
	handler Handler
	model   string
}

// NewClient assembles the middleware chain around the configured provider
// adapter.
func NewClient(cfg *Config) (Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "llm")

	adapter, err := newProviderAdapter(cfg)
	if err != nil {
		return nil, err
	}

	mws := []Middleware{NewLoggingMiddleware(logger)}

	if cfg.RateLimit.Enabled {
		rl, err := NewRateLimitMiddleware(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("rate limit middleware: %w", err)
		}
		mws = append(mws, rl)
	}

	if cfg.Cache.Addr != "" {
		mws = append(mws, NewCacheMiddleware(cfg.Cache, logger))
	}

	retry, err := NewRetryMiddleware(cfg.Retry, logger)
	if err != nil {
		return nil, fmt.Errorf("retry middleware: %w", err)
	}
	mws = append(mws, retry)

	return &client{handler: Chain(adapter, mws...), model: cfg.DefaultModel}, nil
}

// Complete implements Client.
func (c *client) Complete(ctx context.Context, req *Request) (*Response, error) {
	if req.Model == "" {
		r := *req
		r.Model = c.model
		req = &r
	}
	return c.handler.Handle(ctx, req)
}

// newProviderAdapter selects the terminal handler for the configured provider.
func newProviderAdapter(cfg *Config) (Handler, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
