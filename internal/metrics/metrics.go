// Package metrics provides Prometheus collectors for the generation
// pipeline. Metrics follow Prometheus naming conventions with the
// photomotion prefix.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcome label values for the jobs counter.
const (
	OutcomeStarted   = "started"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeRetried   = "retried"
)

// Metrics holds the pipeline collectors. Each instance carries its own
// registry so tests can construct metrics independently.
type Metrics struct {
	registry *prometheus.Registry

	passesTotal  prometheus.Counter
	passDuration prometheus.Histogram
	jobsTotal    *prometheus.CounterVec
	jobsInFlight prometheus.Gauge
}

// New creates the pipeline collectors and registers them on a fresh registry
// alongside the standard Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.passesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photomotion_worker_passes_total",
		Help: "Total worker passes executed",
	})

	m.passDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "photomotion_worker_pass_duration_seconds",
		Help:    "Duration of worker passes",
		Buckets: prometheus.DefBuckets,
	})

	m.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomotion_jobs_total",
			Help: "Generation job transitions by outcome",
		},
		[]string{"outcome", "provider"},
	)

	m.jobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "photomotion_jobs_in_flight",
		Help: "Jobs currently being processed by the worker",
	})

	m.registry.MustRegister(
		m.passesTotal,
		m.passDuration,
		m.jobsTotal,
		m.jobsInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObservePass records one completed worker pass and its duration in seconds.
func (m *Metrics) ObservePass(seconds float64) {
	m.passesTotal.Inc()
	m.passDuration.Observe(seconds)
}

// CountJob records a job transition for the given outcome and provider.
func (m *Metrics) CountJob(outcome, provider string) {
	m.jobsTotal.WithLabelValues(outcome, provider).Inc()
}

// JobStarted increments the in-flight gauge.
func (m *Metrics) JobStarted() {
	m.jobsInFlight.Inc()
}

// JobFinished decrements the in-flight gauge.
func (m *Metrics) JobFinished() {
	m.jobsInFlight.Dec()
}

// Handler returns the HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
