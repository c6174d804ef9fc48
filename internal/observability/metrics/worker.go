package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	intakeTotal    *prometheus.CounterVec
	intakeDuration *prometheus.HistogramVec
	intakeInFlight prometheus.Gauge
	queueLag       *prometheus.HistogramVec
	retriesTotal   *prometheus.CounterVec
	breakerChanges *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	intakeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "analysis_intake_total",
			Help:      "Total consumed analysis documents by status.",
		},
		[]string{"service", "status"},
	)
	intakeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "analysis_intake_duration_seconds",
			Help:      "Analysis intake duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	intakeInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "analysis_intake_in_flight",
			Help:      "Number of in-flight analysis intake tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between classifier completion and intake start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
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

	breakerChanges := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_transitions_total",
			Help:      "Total circuit breaker state transitions by target state.",
		},
		[]string{"service", "operation", "state"},
	)

	registry.MustRegister(intakeTotal, intakeDuration, intakeInFlight, queueLag, retriesTotal, breakerChanges)

	return &WorkerMetrics{
		registry:       registry,
		service:        service,
		intakeTotal:    intakeTotal,
		intakeDuration: intakeDuration,
		intakeInFlight: intakeInFlight,
		queueLag:       queueLag,
		retriesTotal:   retriesTotal,
		breakerChanges: breakerChanges,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartIntake() {
	m.intakeInFlight.Inc()
}

func (m *WorkerMetrics) FinishIntake(duration time.Duration, err error) {
	m.intakeInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.intakeTotal.WithLabelValues(m.service, status).Inc()
	m.intakeDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RetryAttempt(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *WorkerMetrics) BreakerStateChange(operation, state string) {
	m.breakerChanges.WithLabelValues(m.service, operation, state).Inc()
}
