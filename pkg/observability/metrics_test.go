package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recorders(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.RecordComparison(true)
	m.RecordComparison(false)
	m.RecordComparison(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VersionComparisonsTotal.WithLabelValues("highest")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VersionComparisonsTotal.WithLabelValues("outdated")))

	m.RecordBuildEnqueue(nil)
	m.RecordBuildEnqueue(errors.New("queue full"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildsEnqueuedTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildsEnqueuedTotal.WithLabelValues("error")))

	m.RecordTask("update_docs", 10*time.Millisecond, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksProcessedTotal.WithLabelValues("update_docs", "success")))

	m.RecordCache("l1", true)
	m.RecordCache("l2", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("l1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("l2")))

	m.RecordSearch("project", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("project", "ok")))

	m.SetQueueDepth("update_docs", 4, 1)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.QueueDepth.WithLabelValues("update_docs", "waiting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueDepth.WithLabelValues("update_docs", "in_flight")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordComparison(true)
		m.RecordBuildEnqueue(nil)
		m.RecordTask("x", time.Second, nil)
		m.RecordCache("l1", true)
		m.RecordSearch("file", nil)
		m.SetQueueDepth("q", 1, 1)
	})
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/api/v1/project/{slug}/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, slug := range []string{"pip", "django"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/project/"+slug+"/", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusTeapot, rr.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/project/{slug}/", "418")))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordComparison(true)

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	rr := httptest.NewRecorder()
	serveMux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "docsapi_version_comparisons_total"))
}
