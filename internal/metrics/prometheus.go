package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager is the Prometheus-backed Collector.
type Manager struct {
	namespace    string
	trialBuckets []float64
	registry     *prometheus.Registry

	trials          prometheus.Counter
	estimates       *prometheus.CounterVec
	estimateTrials  prometheus.Histogram
	estimateSeconds prometheus.Histogram

	predictions *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:    "tennismc",
		trialBuckets: prometheus.ExponentialBuckets(32, 4, 8),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.trials = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "estimator",
		Name:      "trials_total",
		Help:      "Total number of simulated matches",
	})
	m.estimates = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "estimator",
		Name:      "estimates_total",
		Help:      "Total number of finished estimates by convergence",
	}, []string{"converged"})
	m.estimateTrials = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "estimator",
		Name:      "trials_per_estimate",
		Help:      "Trials needed per estimate",
		Buckets:   m.trialBuckets,
	})
	m.estimateSeconds = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "estimator",
		Name:      "duration_seconds",
		Help:      "Wall time per estimate",
		Buckets:   prometheus.DefBuckets,
	})

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "evaluator",
		Name:      "predictions_total",
		Help:      "Evaluated historical matches by outcome",
	}, []string{"outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
}

func (m *Manager) AddTrials(n int) {
	m.trials.Add(float64(n))
}

func (m *Manager) ObserveEstimate(trials int, converged bool, elapsed time.Duration) {
	m.estimates.WithLabelValues(strconv.FormatBool(converged)).Inc()
	m.estimateTrials.Observe(float64(trials))
	m.estimateSeconds.Observe(elapsed.Seconds())
}

func (m *Manager) ObservePrediction(correct, skipped bool) {
	outcome := "wrong"
	switch {
	case skipped:
		outcome = "skipped"
	case correct:
		outcome = "correct"
	}
	m.predictions.WithLabelValues(outcome).Inc()
}

func (m *Manager) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
