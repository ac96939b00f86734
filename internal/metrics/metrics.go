// Package metrics exposes Prometheus collectors for batch validation runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cutvalid/domain/delta"
)

// File outcomes recorded by FilesProcessed
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics holds the collectors on a private registry so tests and
// several App instances do not collide on the global one.
type Metrics struct {
	registry       *prometheus.Registry
	filesProcessed *prometheus.CounterVec
	warnings       prometheus.Counter
	chiSquared     *prometheus.HistogramVec
	fileDuration   prometheus.Histogram
	runsActive     prometheus.Gauge
	httpRequests   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cutvalid",
			Name:      "files_processed_total",
			Help:      "Validation files processed, by outcome.",
		}, []string{"status"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cutvalid",
			Name:      "domain_warnings_total",
			Help:      "Bins with a zero cut count but a non-zero parametrised count.",
		}),
		chiSquared: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cutvalid",
			Name:      "par_vs_cut_chi2",
			Help:      "Chi-squared of the parametrised cut against the true cut, per deviation point.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"direction"}),
		fileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cutvalid",
			Name:      "file_duration_seconds",
			Help:      "Time spent reading and analysing one file.",
			Buckets:   prometheus.DefBuckets,
		}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cutvalid",
			Name:      "runs_active",
			Help:      "Batch runs currently in progress.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cutvalid",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route pattern and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(m.filesProcessed, m.warnings, m.chiSquared, m.fileDuration, m.runsActive, m.httpRequests)
	return m
}

// FileProcessed counts one file with the given status and records its duration
func (m *Metrics) FileProcessed(status string, took time.Duration) {
	m.filesProcessed.WithLabelValues(status).Inc()
	m.fileDuration.Observe(took.Seconds())
}

// Warnings adds n domain warnings
func (m *Metrics) Warnings(n int) {
	m.warnings.Add(float64(n))
}

// ObserveChiSquared records one parametrised-vs-cut value for a direction
func (m *Metrics) ObserveChiSquared(d delta.Direction, value float64) {
	m.chiSquared.WithLabelValues(d.String()).Observe(value)
}

// RunStarted marks a batch run as active; the returned func marks it finished
func (m *Metrics) RunStarted() func() {
	m.runsActive.Inc()
	return m.runsActive.Dec
}

// Request counts one served HTTP request
func (m *Metrics) Request(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
