package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ssargent/esmkit/pkg/parser"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestsInFlight *prometheus.GaugeVec
	httpRequestDuration  *prometheus.HistogramVec

	// Parse metrics
	parsesTotal   *prometheus.CounterVec
	parseDuration prometheus.Histogram
	chunksTotal   *prometheus.CounterVec
	inflatedBytes prometheus.Counter

	// Store metrics
	storeOperationsTotal *prometheus.CounterVec
	cacheLookupsTotal    *prometheus.CounterVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esm_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "esm_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esm_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		parsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esm_parses_total",
				Help: "Total number of master files parsed",
			},
			[]string{"status"},
		),

		parseDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "esm_parse_duration_seconds",
				Help:    "Time spent decoding a master file",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),

		chunksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esm_chunks_total",
				Help: "Chunks visited by the parser",
			},
			[]string{"kind"},
		),

		inflatedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "esm_inflated_bytes_total",
				Help: "Bytes produced by decompressing records",
			},
		),

		storeOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esm_store_operations_total",
				Help: "Total number of index store operations",
			},
			[]string{"operation", "status"},
		),

		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esm_cache_lookups_total",
				Help: "Total number of record lookups served from or missing the cache",
			},
			[]string{"result"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esm_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esm_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}
}

func statusLabel(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordParse records one decode attempt and, when it succeeded, what the
// parser visited
func (m *Metrics) RecordParse(stats parser.Stats, success bool, duration time.Duration) {
	m.parsesTotal.WithLabelValues(statusLabel(success)).Inc()
	m.parseDuration.Observe(duration.Seconds())
	if !success {
		return
	}
	m.chunksTotal.WithLabelValues("group").Add(float64(stats.Groups))
	m.chunksTotal.WithLabelValues("record").Add(float64(stats.Records))
	m.chunksTotal.WithLabelValues("field").Add(float64(stats.Fields))
	m.chunksTotal.WithLabelValues("compressed").Add(float64(stats.Compressed))
	m.chunksTotal.WithLabelValues("skipped").Add(float64(stats.Skipped))
	m.inflatedBytes.Add(float64(stats.InflatedBytes))
}

// RecordStoreOperation records an index store operation
func (m *Metrics) RecordStoreOperation(operation string, success bool) {
	m.storeOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
}

// RecordCacheLookup records whether a record lookup hit the cache
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	m.healthChecksTotal.WithLabelValues(statusLabel(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Capture the status code written by the handler
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware counts authentication outcomes for requests that
// carry an API key
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
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
