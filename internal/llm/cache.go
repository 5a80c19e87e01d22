package llm

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "eventtag:llm:"

// NewCacheMiddleware creates Redis-backed response caching middleware.
// Identical requests within the TTL are served from cache without touching
// the provider. Cache failures are logged and degrade to a direct call.
func NewCacheMiddleware(cfg CacheConfig, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("middleware", "cache")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			key := cacheKey(req)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var resp Response
				if err := json.Unmarshal(raw, &resp); err == nil {
					logger.Debug("cache hit", "trace_id", req.TraceID)
					return &resp, nil
				}
				logger.Warn("discarding corrupt cache entry", "key", key)
			} else if err != redis.Nil {
				logger.Warn("cache read failed", "error", err)
			}

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}

			if raw, err := json.Marshal(resp); err == nil {
				if err := rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
					logger.Warn("cache write failed", "error", err)
				}
			}
			return resp, nil
		})
	}
}

// cacheKey hashes the request fields that influence the completion.
func cacheKey(req *Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%g|%d|%s", req.Model, req.Temperature, req.MaxTokens, req.Prompt)
	return fmt.Sprintf("%s%x", cacheKeyPrefix, h.Sum(nil))
}
