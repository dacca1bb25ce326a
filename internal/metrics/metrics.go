// Package metrics provides Prometheus instrumentation for the analytics service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpstreamRequests counts provider calls by endpoint and outcome.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_analytics_upstream_requests_total",
		Help: "Provider requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	// UpstreamLatency tracks provider round trip time.
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odds_analytics_upstream_latency_seconds",
		Help:    "Provider request latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"endpoint"})

	// CacheLookups counts cache hits and misses per endpoint.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_analytics_cache_lookups_total",
		Help: "Cache lookups by endpoint and result",
	}, []string{"endpoint", "result"})

	// QuotesRejected counts normalization rejections by error kind.
	QuotesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_analytics_quotes_rejected_total",
		Help: "Quotes rejected during normalization",
	}, []string{"market", "kind"})

	// GenerationRuns counts finished generation runs.
	GenerationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_analytics_generation_runs_total",
		Help: "Finished generation runs by source and result",
	}, []string{"source", "result"})

	// GenerationDuration tracks generation run time.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odds_analytics_generation_duration_seconds",
		Help:    "Generation run duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"artifact"})

	// GenerationQueueDepth tracks runs waiting for a worker.
	GenerationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "odds_analytics_generation_queue_depth",
		Help: "Generation runs waiting for a worker",
	})

	// ArtifactWrites counts written artifacts; unchanged content is not counted.
	ArtifactWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_analytics_artifact_writes_total",
		Help: "Artifacts written by kind",
	}, []string{"artifact"})

	// RefreshSweeps counts refresh sweeps and how many fingerprints they triggered.
	RefreshSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odds_analytics_refresh_sweeps_total",
		Help: "Completed refresh sweeps",
	})

	RefreshTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odds_analytics_refresh_triggered_total",
		Help: "Fingerprints re-triggered by refresh sweeps",
	})

	// MovementsRecorded counts appended movement records.
	MovementsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_analytics_movements_recorded_total",
		Help: "Movement records appended by market",
	}, []string{"market"})

	// KafkaMessages counts consumed and published messages.
	KafkaMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_analytics_kafka_messages_total",
		Help: "Kafka messages by topic and result",
	}, []string{"topic", "result"})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_analytics_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odds_analytics_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics labelled by the matched chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
