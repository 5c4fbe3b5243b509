package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/docsapi/pkg/httputil"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

// DistributedThrottle is a fixed-window request counter in Redis, shared by
// every API instance. Redis errors let the request through.
type DistributedThrottle struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

// NewDistributedThrottle allows limit requests per client per window
func NewDistributedThrottle(client *redis.Client, limit int64, window time.Duration) *DistributedThrottle {
	if window <= 0 {
		window = time.Minute
	}
	return &DistributedThrottle{
		redis:  client,
		limit:  limit,
		window: window,
		prefix: "docsapi:throttle",
	}
}

// Allow counts one request for key and reports whether it is within the limit
func (t *DistributedThrottle) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", t.prefix, key)

	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("throttle counter: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		// first hit of a window
		if err := t.redis.Expire(ctx, redisKey, t.window).Err(); err != nil {
			return true, 0, fmt.Errorf("throttle window: %w", err)
		}
		remaining = t.window
	}
	return incr.Val() <= t.limit, remaining, nil
}

// Middleware rejects clients over budget with 429
func (t *DistributedThrottle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, ttl, err := t.Allow(r.Context(), ClientKey(r))
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("Throttle unavailable, allowing request")
		}
		if !allowed {
			retry := int64(ttl.Seconds())
			if retry <= 0 {
				retry = int64(t.window.Seconds())
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
			httputil.WriteTooManyRequests(w, "request was throttled")
			return
		}
		next.ServeHTTP(w, r)
	})
}
