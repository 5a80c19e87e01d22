package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
		MaxElapsedTime:  time.Second,
	}
}

func TestNewRetryMiddlewareValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RetryConfig)
	}{
		{"zero attempts", func(c *RetryConfig) { c.MaxAttempts = 0 }},
		{"zero initial interval", func(c *RetryConfig) { c.InitialInterval = 0 }},
		{"max below initial", func(c *RetryConfig) { c.MaxInterval = c.InitialInterval / 2 }},
		{"multiplier below one", func(c *RetryConfig) { c.Multiplier = 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastRetryConfig()
			tt.mutate(&cfg)
			_, err := NewRetryMiddleware(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestRetryMiddleware(t *testing.T) {
	req := &Request{Prompt: "classify this", Model: "gpt-4o"}

	t.Run("retries transient failures until success", func(t *testing.T) {
		mw, err := NewRetryMiddleware(fastRetryConfig(), nil)
		require.NoError(t, err)

		attempts := 0
		handler := mw(HandlerFunc(func(_ context.Context, _ *Request) (*Response, error) {
			attempts++
			if attempts < 3 {
				return nil, &UpstreamError{Provider: ProviderOpenAI, Type: ErrorTypeProvider, Message: "down"}
			}
			return &Response{Content: "ok"}, nil
		}))

		resp, err := handler.Handle(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)
		assert.Equal(t, 3, attempts)
	})

	t.Run("does not retry non-retryable failures", func(t *testing.T) {
		mw, err := NewRetryMiddleware(fastRetryConfig(), nil)
		require.NoError(t, err)

		attempts := 0
		authErr := &UpstreamError{Provider: ProviderOpenAI, Type: ErrorTypeAuth, Message: "bad key"}
		handler := mw(HandlerFunc(func(_ context.Context, _ *Request) (*Response, error) {
			attempts++
			return nil, authErr
		}))

		_, err = handler.Handle(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
		assert.NotErrorIs(t, err, ErrRetriesExhausted)
	})

	t.Run("exhaustion wraps the last error", func(t *testing.T) {
		mw, err := NewRetryMiddleware(fastRetryConfig(), nil)
		require.NoError(t, err)

		attempts := 0
		handler := mw(HandlerFunc(func(_ context.Context, _ *Request) (*Response, error) {
			attempts++
			return nil, &UpstreamError{Provider: ProviderOpenAI, Type: ErrorTypeTimeout, Message: "slow"}
		}))

		_, err = handler.Handle(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
		assert.ErrorIs(t, err, ErrRetriesExhausted)

		var upErr *UpstreamError
		assert.ErrorAs(t, err, &upErr)
	})

	t.Run("cancelled context stops the backoff wait", func(t *testing.T) {
		cfg := fastRetryConfig()
		cfg.InitialInterval = time.Minute
		cfg.MaxInterval = time.Minute
		mw, err := NewRetryMiddleware(cfg, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		handler := mw(HandlerFunc(func(_ context.Context, _ *Request) (*Response, error) {
			cancel()
			return nil, &UpstreamError{Provider: ProviderOpenAI, Type: ErrorTypeNetwork, Message: "reset"}
		}))

		_, err = handler.Handle(ctx, req)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestUpstreamErrorRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider}
	for _, typ := range retryable {
		assert.True(t, (&UpstreamError{Type: typ}).Retryable(), "%s should be retryable", typ)
	}
	terminal := []ErrorType{ErrorTypeAuth, ErrorTypeQuota, ErrorTypeInvalidResponse, ErrorTypeUnknown}
	for _, typ := range terminal {
		assert.False(t, (&UpstreamError{Type: typ}).Retryable(), "%s should not be retryable", typ)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
				order = append(order, name)
				return next.Handle(ctx, req)
			})
		}
	}

	handler := Chain(HandlerFunc(func(_ context.Context, _ *Request) (*Response, error) {
		order = append(order, "terminal")
		return &Response{}, nil
	}), tag("outer"), tag("inner"))

	_, err := handler.Handle(context.Background(), &Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "terminal"}, order)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{429, ErrorTypeRateLimit},
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{402, ErrorTypeQuota},
		{408, ErrorTypeTimeout},
		{504, ErrorTypeTimeout},
		{500, ErrorTypeProvider},
		{503, ErrorTypeProvider},
		{418, ErrorTypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.code), "status %d", tt.code)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.MaxAttempts = 2
	mw, err := NewRetryMiddleware(cfg, nil)
	require.NoError(t, err)

	attempts := 0
	start := time.Now()
	handler := mw(HandlerFunc(func(_ context.Context, _ *Request) (*Response, error) {
		attempts++
		if attempts == 1 {
			return nil, &UpstreamError{
				Provider:   ProviderOpenAI,
				Type:       ErrorTypeRateLimit,
				Message:    "slow down",
				RetryAfter: 30 * time.Millisecond,
			}
		}
		return &Response{Content: "ok"}, nil
	}))

	_, err = handler.Handle(context.Background(), &Request{Prompt: "x"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond, "provider hint should set the wait")
}
