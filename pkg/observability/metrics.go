package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Version resolution metrics
	VersionComparisonsTotal *prometheus.CounterVec
	BuildsEnqueuedTotal     *prometheus.CounterVec

	// Task queue metrics
	TasksProcessedTotal *prometheus.CounterVec
	TaskDuration        *prometheus.HistogramVec
	QueueDepth          *prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Search metrics
	SearchQueriesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsapi_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsapi_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		VersionComparisonsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsapi_version_comparisons_total",
				Help: "Total number of highest-version comparisons by outcome",
			},
			[]string{"outcome"},
		),
		BuildsEnqueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsapi_builds_enqueued_total",
				Help: "Total number of documentation builds enqueued",
			},
			[]string{"status"},
		),
		TasksProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsapi_tasks_processed_total",
				Help: "Total number of background tasks processed",
			},
			[]string{"task", "status"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsapi_task_duration_seconds",
				Help:    "Background task duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"task"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docsapi_queue_depth",
				Help: "Number of tasks waiting in the queue",
			},
			[]string{"queue", "state"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsapi_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"layer"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsapi_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"layer"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsapi_search_queries_total",
				Help: "Total number of search queries",
			},
			[]string{"index", "status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.VersionComparisonsTotal,
		m.BuildsEnqueuedTotal,
		m.TasksProcessedTotal,
		m.TaskDuration,
		m.QueueDepth,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.SearchQueriesTotal,
	)

	return m
}

// RecordComparison counts a highest-version comparison; safe on a nil receiver
func (m *Metrics) RecordComparison(isHighest bool) {
	if m == nil {
		return
	}
	outcome := "outdated"
	if isHighest {
		outcome = "highest"
	}
	m.VersionComparisonsTotal.WithLabelValues(outcome).Inc()
}

// RecordBuildEnqueue counts a build enqueue attempt; safe on a nil receiver
func (m *Metrics) RecordBuildEnqueue(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.BuildsEnqueuedTotal.WithLabelValues(status).Inc()
}

// RecordTask records a processed background task; safe on a nil receiver
func (m *Metrics) RecordTask(task string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.TasksProcessedTotal.WithLabelValues(task, status).Inc()
	m.TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordCache records a cache lookup; safe on a nil receiver
func (m *Metrics) RecordCache(layer string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(layer).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(layer).Inc()
}

// RecordSearch counts a search query; safe on a nil receiver
func (m *Metrics) RecordSearch(index string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SearchQueriesTotal.WithLabelValues(index, status).Inc()
}

// SetQueueDepth records the waiting and in-flight task counts; safe on a nil receiver
func (m *Metrics) SetQueueDepth(queue string, waiting, inFlight int64) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue, "waiting").Set(float64(waiting))
	m.QueueDepth.WithLabelValues(queue, "in_flight").Set(float64(inFlight))
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel returns the mux route template so path parameters don't explode label cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// It is meant to be installed with router.Use so the matched route is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
