package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.BatchEvent("completed")
	m.ResumeScreened("Approved")
	m.ResumeScreened("Approved")
	m.Classified("heuristic", true)
	m.ObserveOracle("score", time.Now(), errors.New("boom"))
	m.BreakerOpen("oracle", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.resumes.WithLabelValues("Approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("heuristic", "true")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.oracleDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breakerState.WithLabelValues("oracle")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BatchEvent("created")
		m.ResumeScreened("Error")
		m.Classified("oracle", false)
		m.ObserveOracle("classify", time.Now(), nil)
		m.BreakerOpen("oracle", false)
	})
}
