// Package metrics holds the prometheus collectors for the analysis pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scope3"

// Metrics is safe for concurrent use. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	extractionStrategy *prometheus.CounterVec
	pipelineDuration   prometheus.Histogram
	items              prometheus.Counter
	emissionsKg        prometheus.Counter
}

// New registers the pipeline collectors on a fresh registry.
// Go runtime and process collectors are added when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		)
	}

	m := &Metrics{
		registry: reg,
		extractionStrategy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_strategy_total",
			Help:      "Invoices parsed, by the extraction strategy whose output was used.",
		}, []string{"strategy"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of one invoice analysis.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Line items produced across all analyses.",
		}),
		emissionsKg: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emissions_kg_total",
			Help:      "Estimated kg CO2e across all analyses.",
		}),
	}
	reg.MustRegister(m.extractionStrategy, m.pipelineDuration, m.items, m.emissionsKg)
	return m
}

func (m *Metrics) ObserveStrategy(strategy string) {
	if m == nil {
		return
	}
	m.extractionStrategy.WithLabelValues(strategy).Inc()
}

// ObserveAnalysis records one finished pipeline run.
func (m *Metrics) ObserveAnalysis(seconds float64, items int, emissionsKg float64) {
	if m == nil {
		return
	}
	m.pipelineDuration.Observe(seconds)
	m.items.Add(float64(items))
	if emissionsKg > 0 {
		m.emissionsKg.Add(emissionsKg)
	}
}

// Registry exposes the underlying registry, mostly for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
