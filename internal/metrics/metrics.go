// Package metrics mirrors engine activity into Prometheus collectors.
//
// Collectors are registered in a private [prometheus.Registry] so hosts can mount them next to their
// own metrics without name clashes on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one engine.
type Metrics struct {
	Registry *prometheus.Registry

	EvaluationsTotal *prometheus.CounterVec
	VariantsTotal    *prometheus.CounterVec
	LoadsTotal       *prometheus.CounterVec
	ToggleCount      prometheus.Gauge
	UploadsTotal     *prometheus.CounterVec
}

// New creates and registers the engine metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "featurekit_evaluations_total",
			Help: "Total number of toggle evaluations.",
		}, []string{"toggle", "result"}),

		VariantsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "featurekit_variants_total",
			Help: "Total number of variants served.",
		}, []string{"toggle", "variant"}),

		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "featurekit_document_loads_total",
			Help: "Total number of configuration document loads.",
		}, []string{"result"}),

		ToggleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "featurekit_toggles",
			Help: "Number of toggles in the active document.",
		}),

		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "featurekit_metrics_uploads_total",
			Help: "Total number of metrics batch uploads.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.EvaluationsTotal,
		m.VariantsTotal,
		m.LoadsTotal,
		m.ToggleCount,
		m.UploadsTotal,
	)
	return m
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RecordEvaluation counts one decision and, when a real variant was served, the variant.
func (m *Metrics) RecordEvaluation(toggle string, enabled bool, variant string) {
	m.EvaluationsTotal.WithLabelValues(toggle, resultLabel(enabled)).Inc()
	if variant != "" {
		m.VariantsTotal.WithLabelValues(toggle, variant).Inc()
	}
}

// RecordLoad counts a document load attempt. toggles is only applied on success.
func (m *Metrics) RecordLoad(err error, toggles int) {
	if err != nil {
		m.LoadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.LoadsTotal.WithLabelValues("ok").Inc()
	m.ToggleCount.Set(float64(toggles))
}

// RecordUpload counts a metrics batch upload attempt.
func (m *Metrics) RecordUpload(ok bool) {
	if ok {
		m.UploadsTotal.WithLabelValues("ok").Inc()
		return
	}
	m.UploadsTotal.WithLabelValues("error").Inc()
}

func resultLabel(enabled bool) string {
	if enabled {
		return "yes"
	}
	return "no"
}
