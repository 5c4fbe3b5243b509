package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docsapi/pkg/contextkeys"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestThrottleBurst(t *testing.T) {
	th := NewThrottle(ThrottleConfig{RequestsPerSecond: 0.001, Burst: 2})
	handler := th.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// other clients have their own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottleCleanup(t *testing.T) {
	th := NewThrottle(ThrottleConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Millisecond})
	th.Allow("ip:1.2.3.4")
	time.Sleep(5 * time.Millisecond)
	th.Cleanup()

	th.mu.Lock()
	defer th.mu.Unlock()
	assert.Empty(t, th.clients)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:5555"
	assert.Equal(t, "ip:192.168.1.9", ClientKey(req))

	req.Header.Set("X-Real-IP", "172.16.0.3")
	assert.Equal(t, "ip:172.16.0.3", ClientKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "ip:203.0.113.7", ClientKey(req))

	req = req.WithContext(contextkeys.WithUsername(req.Context(), "eric"))
	assert.Equal(t, "user:eric", ClientKey(req))
}

func TestDistributedThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	th := NewDistributedThrottle(client, 2, time.Minute)
	handler := th.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.True(t, mr.Exists("docsapi:throttle:ip:10.0.0.1"))
	assert.Greater(t, mr.TTL("docsapi:throttle:ip:10.0.0.1"), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDistributedThrottleFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	th := NewDistributedThrottle(client, 1, time.Minute)
	mr.Close()

	allowed, _, err := th.Allow(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "ip:x")
	require.Error(t, err)
	assert.True(t, allowed)
}
