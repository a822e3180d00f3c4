package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStrategy(t *testing.T) {
	m := New(false)
	m.ObserveStrategy("llm")
	m.ObserveStrategy("rules")
	m.ObserveStrategy("rules")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractionStrategy.WithLabelValues("llm")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.extractionStrategy.WithLabelValues("rules")))
}

func TestObserveAnalysis(t *testing.T) {
	m := New(false)
	m.ObserveAnalysis(0.2, 3, 120.5)
	m.ObserveAnalysis(0.1, 0, 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.items))
	assert.Equal(t, 120.5, testutil.ToFloat64(m.emissionsKg))
	assert.Equal(t, 1, testutil.CollectAndCount(m.pipelineDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStrategy("llm")
		m.ObserveAnalysis(1, 1, 1)
	})
}

func TestHandler(t *testing.T) {
	m := New(false)
	m.ObserveStrategy("none")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `scope3_extraction_strategy_total{strategy="none"} 1`)
	assert.Contains(t, w.Body.String(), "scope3_pipeline_duration_seconds")
}
