package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/platinummonkey/docsapi/pkg/contextkeys"
	"github.com/platinummonkey/docsapi/pkg/httputil"
)

// ThrottleConfig sets the per-client request budget
type ThrottleConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL drops limiters of clients not seen for this long
	IdleTTL time.Duration
}

// DefaultThrottleConfig returns the default budget
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		RequestsPerSecond: 10,
		Burst:             50,
		IdleTTL:           10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is an in-process token bucket per client
type Throttle struct {
	cfg     ThrottleConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewThrottle creates a throttle
func NewThrottle(cfg ThrottleConfig) *Throttle {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultThrottleConfig().RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultThrottleConfig().Burst
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultThrottleConfig().IdleTTL
	}
	return &Throttle{cfg: cfg, clients: make(map[string]*clientLimiter)}
}

// Allow spends one token of key's bucket
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	c, ok := t.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.Burst)}
		t.clients[key] = c
	}
	c.lastSeen = time.Now()
	t.mu.Unlock()

	return c.limiter.Allow()
}

// Cleanup forgets idle clients
func (t *Throttle) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-t.cfg.IdleTTL)
	for key, c := range t.clients {
		if c.lastSeen.Before(cutoff) {
			delete(t.clients, key)
		}
	}
}

// StartCleanup runs Cleanup every IdleTTL until ctx is done
func (t *Throttle) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.IdleTTL)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Middleware rejects clients over budget with 429
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	retryAfter := fmt.Sprintf("%d", int(math.Ceil(1/t.cfg.RequestsPerSecond)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Allow(ClientKey(r)) {
			w.Header().Set("Retry-After", retryAfter)
			httputil.WriteTooManyRequests(w, "request was throttled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the caller: the authenticated user, otherwise the client IP
func ClientKey(r *http.Request) string {
	if username := contextkeys.GetUsername(r.Context()); username != "" {
		return "user:" + username
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
