package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType categorizes upstream failures for retry classification.
type ErrorType string

const (
	// ErrorTypeTimeout indicates a request timeout or deadline exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates the provider rejected for rate limiting (retryable with backoff).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates a transport-level failure (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates the provider service is unavailable (retryable).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeAuth indicates authentication failed (non-retryable).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeQuota indicates the account quota is exhausted (non-retryable).
	ErrorTypeQuota ErrorType = "quota_exceeded"

	// ErrorTypeInvalidResponse indicates the provider returned an unparseable body (non-retryable).
	ErrorTypeInvalidResponse ErrorType = "invalid_response"

	// ErrorTypeUnknown indicates an unclassified failure (non-retryable).
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common client errors.
var (
	// ErrUnknownProvider indicates an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmptyPrompt indicates a request without prompt text.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrRetriesExhausted indicates all retry attempts failed.
	ErrRetriesExhausted = errors.New("all retry attempts exhausted")
)

// UpstreamError is a classified external model call failure. The orchestrator
// treats any of these as terminal for the event; retry decisions based on
// Retryable happen inside this package only.
type UpstreamError struct {
	Provider   string
	Model      string
	StatusCode int
	Type       ErrorType
	Message    string

	// RetryAfter is the provider-suggested wait, zero when absent.
	RetryAfter time.Duration

	Err error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s upstream error (%s, status %d): %s", e.Provider, e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s upstream error (%s): %s", e.Provider, e.Type, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is worth retrying.
func (e *UpstreamError) Retryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// GetRetryAfter returns the provider-suggested wait before the next attempt.
func (e *UpstreamError) GetRetryAfter() time.Duration { return e.RetryAfter }

// classifyStatus maps an HTTP status code to an error type.
func classifyStatus(code int) ErrorType {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorTypeAuth
	case code == http.StatusPaymentRequired:
		return ErrorTypeQuota
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case code >= 500:
		return ErrorTypeProvider
	default:
		return ErrorTypeUnknown
	}
}
