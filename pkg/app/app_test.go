package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/config"
	"github.com/platinummonkey/docsapi/pkg/observability"
	"github.com/platinummonkey/docsapi/pkg/tasks"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Server.HealthPort = "0"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Storage.DSN = ":memory:"
	cfg.Auth.AdminUser = "admin"
	cfg.Auth.AdminPassword = "secret"
	cfg.Queue.PollTimeout = 50 * time.Millisecond
	cfg.Queue.Workers = 1
	return cfg
}

func newRedisClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func request(t *testing.T, h http.Handler, method, path string, body interface{}, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.SetBasicAuth("admin", "secret")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_BootstrapsAdmin(t *testing.T) {
	a := newTestApp(t, testConfig())

	user, err := a.Storage().GetUser(context.Background(), "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "secret", user.PasswordHash)
	assert.IsType(t, &tasks.MemoryQueue{}, a.Broker())
	assert.Nil(t, a.Redis())
}

func TestHandler_WritesNeedCredentials(t *testing.T) {
	a := newTestApp(t, testConfig())
	h := a.Handler()

	rec := request(t, h, http.MethodPost, "/api/v1/project/", map[string]string{"name": "Pip"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(t, h, http.MethodPost, "/api/v1/project/", map[string]string{"name": "Pip"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = request(t, h, http.MethodGet, "/api/v1/project/pip/", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	// no anchor route without redis
	rec = request(t, h, http.MethodGet, "/api/v1/file/anchor/?q=x", nil, false)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestHandler_BuildRunsThroughWorker(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testConfig())
	h := a.Handler()

	rec := request(t, h, http.MethodPost, "/api/v1/project/", map[string]string{"name": "Pip"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project, err := a.Storage().GetProject(ctx, "pip")
	require.NoError(t, err)
	require.NoError(t, a.Storage().CreateVersion(ctx, &api.Version{
		ProjectID: project.ID, Slug: "1.0", Identifier: "1.0", VerboseName: "1.0", Active: true,
	}))

	rec = request(t, h, http.MethodGet, "/api/v1/version/pip/1.0/build", nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"building": true}`, rec.Body.String())

	task, err := a.Broker().Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, tasks.UpdateDocsTask, task.Name)

	worker, err := a.NewWorker()
	require.NoError(t, err)
	worker.Process(ctx, task)

	builds, total, err := a.Storage().ListBuilds(ctx, api.BuildFilter{ProjectSlug: "pip"}, api.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, builds, 1)
}

func TestHealthHandler(t *testing.T) {
	a := newTestApp(t, testConfig())

	request(t, a.Handler(), http.MethodGet, "/api/v1/project/", nil, false)

	rec := request(t, a.HealthHandler(), http.MethodGet, "/health/ready", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, a.HealthHandler(), http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docsapi_http_requests_total")
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.MetricsEnabled = false
	a := newTestApp(t, cfg)

	assert.Nil(t, a.Metrics())
	rec := request(t, a.HealthHandler(), http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.Queue.Type = "redis"
	cfg.Auth.Throttle = "redis"
	a := newTestApp(t, cfg)

	assert.NotNil(t, a.Redis())
	assert.IsType(t, &tasks.RedisQueue{}, a.Broker())

	rec := request(t, a.Handler(), http.MethodGet, "/api/v1/file/anchor/?q=install", nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "objects")
}

func TestNew_BadStorage(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Type = "oracle"
	_, err := New(context.Background(), cfg, observability.NewLogger(observability.ErrorLevel, io.Discard))
	assert.Error(t, err)
}

func TestNewBroker(t *testing.T) {
	b, err := NewBroker(config.QueueConfig{Type: "memory", Size: 1}, nil)
	require.NoError(t, err)
	assert.IsType(t, &tasks.MemoryQueue{}, b)

	_, err = NewBroker(config.QueueConfig{Type: "redis"}, nil)
	assert.Error(t, err)

	_, err = NewBroker(config.QueueConfig{Type: "kafka"}, nil)
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := newTestApp(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "not-a-port"
	a := newTestApp(t, cfg)

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not-a-port"))
}

func TestLinks(t *testing.T) {
	links := Links(config.DocsConfig{ProductionDomain: "readthedocs.org", BaseURL: "https://readthedocs.org"})
	assert.Equal(t, "readthedocs.org", links.ProductionDomain)
	assert.Equal(t, "https://readthedocs.org", links.DocsBaseURL)
}

func TestScheduler(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	cfg := config.Default().Queue

	c, err := NewScheduler(cfg, tasks.NewMemoryQueue(1), nil, logger)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	mr := miniredis.RunT(t)
	cfg.Type = "redis"
	broker, err := NewBroker(cfg, newRedisClient(t, mr))
	require.NoError(t, err)
	c, err = NewScheduler(cfg, broker, nil, logger)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)

	cfg.DepthSchedule = "every now and then"
	_, err = NewScheduler(cfg, broker, nil, logger)
	assert.Error(t, err)
}

func TestReportDepth(t *testing.T) {
	ctx := context.Background()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	q := tasks.NewMemoryQueue(4)
	require.NoError(t, q.Enqueue(ctx, tasks.NewUpdateDocs(1, 2)))
	require.NoError(t, q.Enqueue(ctx, tasks.NewUpdateDocs(1, 3)))

	ReportDepth(ctx, "default", q, metrics, logger)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("default", "waiting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("default", "in_flight")))
}

func TestRequeueStale(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.WarnLevel, &buf)

	mr := miniredis.RunT(t)
	q := tasks.NewRedisQueue(newRedisClient(t, mr), "default")
	require.NoError(t, q.Enqueue(ctx, tasks.NewUpdateDocs(1, 2)))
	_, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	// a zero max age makes every stamped in-flight task stale
	RequeueStale(ctx, q, 0, logger)
	RequeueStale(ctx, q, 0, logger)

	waiting, inFlight, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, waiting)
	assert.EqualValues(t, 0, inFlight)

	mr.Close()
	RequeueStale(ctx, q, 0, logger)
	assert.Contains(t, buf.String(), "Failed to requeue stale tasks")
}
