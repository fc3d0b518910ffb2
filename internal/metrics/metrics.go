package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the screening pipeline collectors. A nil *Metrics is valid
// and records nothing, so components can be built without a registry.
type Metrics struct {
	batches         *prometheus.CounterVec
	resumes         *prometheus.CounterVec
	classifications *prometheus.CounterVec
	oracleDuration  *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resume_screener",
			Name:      "batches_total",
			Help:      "Batches by lifecycle event.",
		}, []string{"event"}),
		resumes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resume_screener",
			Name:      "resumes_total",
			Help:      "Screened files by final status.",
		}, []string{"status"}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resume_screener",
			Name:      "classifications_total",
			Help:      "Classifier verdicts by method and outcome.",
		}, []string{"method", "is_resume"}),
		oracleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resume_screener",
			Name:      "oracle_request_duration_seconds",
			Help:      "Latency of oracle calls by operation and outcome.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"op", "outcome"}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "resume_screener",
			Name:      "oracle_breaker_open",
			Help:      "1 while the oracle circuit breaker is open.",
		}, []string{"name"}),
	}
}

func (m *Metrics) BatchEvent(event string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(event).Inc()
}

func (m *Metrics) ResumeScreened(status string) {
	if m == nil {
		return
	}
	m.resumes.WithLabelValues(status).Inc()
}

func (m *Metrics) Classified(method string, isResume bool) {
	if m == nil {
		return
	}
	verdict := "false"
	if isResume {
		verdict = "true"
	}
	m.classifications.WithLabelValues(method, verdict).Inc()
}

func (m *Metrics) ObserveOracle(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.oracleDuration.WithLabelValues(op, outcome).Observe(time.Since(started).Seconds())
}

func (m *Metrics) BreakerOpen(name string, open bool) {
	if m == nil {
		return
	}
	value := 0.0
	if open {
		value = 1
	}
	m.breakerState.WithLabelValues(name).Set(value)
}
