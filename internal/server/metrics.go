package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nibzard/roadmap-go/internal/validate"
)

const namespace = "roadmap"

// Metrics holds the Prometheus metrics exposed on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	// Validation metrics
	Validations *prometheus.CounterVec
	Violations  *prometheus.CounterVec

	// HTTP metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics on a private registry so several servers
// can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total number of documents validated, by result",
		}, []string{"result"}),
		Violations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Total number of violations reported, by rule",
		}, []string{"rule"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests, by route and status code",
		}, []string{"route", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"route"}),
	}
}

// ObserveValidation records the outcome of one validation.
func (m *Metrics) ObserveValidation(result *validate.Result) {
	if result.Valid() {
		m.Validations.WithLabelValues("valid").Inc()
		return
	}
	m.Validations.WithLabelValues("invalid").Inc()
	for rule, n := range result.Counts() {
		m.Violations.WithLabelValues(string(rule)).Add(float64(n))
	}
}
