package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// NewLoggingMiddleware creates structured logging middleware. Prompt text is
// never logged, only its length.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				attrs := []any{
					"model", req.Model,
					"prompt_len", len(req.Prompt),
					"elapsed", elapsed,
					"trace_id", req.TraceID,
					"error", err,
				}
				var upErr *UpstreamError
				if errors.As(err, &upErr) {
					attrs = append(attrs, "error_type", upErr.Type)
				}
				logger.Error("completion failed", attrs...)
				return nil, err
			}

			logger.Info("completion succeeded",
				"model", resp.Model,
				"prompt_len", len(req.Prompt),
				"tokens_used", resp.TokensUsed,
				"finish_reason", resp.FinishReason,
				"elapsed", elapsed,
				"trace_id", req.TraceID)
			return resp, nil
		})
	}
}
