package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

const namespace = "compliance"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	comparisonsTotal       *prometheus.CounterVec
	comparisonIssueDelta   *prometheus.HistogramVec
	categorySelections     *prometheus.CounterVec
	sessionIterationsTotal *prometheus.CounterVec
	retriesTotal           *prometheus.CounterVec
	breakerTransitions     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	comparisonsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comparison",
			Name:      "total",
			Help:      "Total before/after comparisons by source and outcome.",
		},
		[]string{"service", "source", "outcome"},
	)
	comparisonIssueDelta := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "comparison",
			Name:      "issue_improvement",
			Help:      "Distribution of resolved issue counts per comparison.",
			Buckets:   []float64{-10, -5, -2, -1, 0, 1, 2, 5, 10, 20},
		},
		[]string{"service", "source"},
	)
	categorySelections := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category",
			Name:      "selections_total",
			Help:      "Total category selections by whether the detected category was overridden.",
		},
		[]string{"service", "changed"},
	)
	sessionIterationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "iterations_total",
			Help:      "Total appended session iterations by kind.",
		},
		[]string{"service", "kind"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Total retry attempts by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_transitions_total",
			Help:      "Total circuit breaker state transitions by target state.",
		},
		[]string{"service", "operation", "state"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		comparisonsTotal,
		comparisonIssueDelta,
		categorySelections,
		sessionIterationsTotal,
		retriesTotal,
		breakerTransitions,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		service:                service,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		comparisonsTotal:       comparisonsTotal,
		comparisonIssueDelta:   comparisonIssueDelta,
		categorySelections:     categorySelections,
		sessionIterationsTotal: sessionIterationsTotal,
		retriesTotal:           retriesTotal,
		breakerTransitions:     breakerTransitions,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware must run inside the chi router so the matched route pattern is
// available as the path label.
func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := routePattern(r)
		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func (m *HTTPServerMetrics) RecordComparison(source string, result domain.ComparisonResult) {
	outcome := "unchanged"
	switch {
	case result.StatusImproved || result.Improvement > 0:
		outcome = "improved"
	case result.Improvement < 0:
		outcome = "regressed"
	}
	m.comparisonsTotal.WithLabelValues(m.service, source, outcome).Inc()
	m.comparisonIssueDelta.WithLabelValues(m.service, source).Observe(float64(result.Improvement))
}

func (m *HTTPServerMetrics) RecordCategorySelection(selection domain.CategorySelection) {
	m.categorySelections.WithLabelValues(m.service, strconv.FormatBool(selection.Changed)).Inc()
}

func (m *HTTPServerMetrics) RecordIteration(kind domain.IterationKind) {
	if kind == "" {
		kind = "unknown"
	}
	m.sessionIterationsTotal.WithLabelValues(m.service, string(kind)).Inc()
}

func (m *HTTPServerMetrics) RetryAttempt(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *HTTPServerMetrics) BreakerStateChange(operation, state string) {
	m.breakerTransitions.WithLabelValues(m.service, operation, state).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
