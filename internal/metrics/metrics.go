// Package metrics holds the Prometheus collectors for video analysis.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors are registered on a caller-owned registry so tests and the CLI get isolated sets
type Collectors struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	FramesTotal      prometheus.Counter
	ViolationsTotal  *prometheus.CounterVec
	AnalysesInFlight prometheus.Gauge
	VerdictsTotal    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, including the Go and process collectors
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the analysis collectors on reg
func NewWithRegistry(reg *prometheus.Registry) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		registry: reg,

		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_analyses_total",
			Help: "Total number of video analyses, by outcome",
		}, []string{"outcome"}),

		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "proctor_analysis_duration_seconds",
			Help:    "Duration of the decode and detect loop",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),

		FramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "proctor_frames_analyzed_total",
			Help: "Total number of frames classified across all analyses",
		}),

		ViolationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_frame_violations_total",
			Help: "Total number of per-frame violations, by kind",
		}, []string{"kind"}),

		AnalysesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "proctor_analyses_in_flight",
			Help: "Number of analyses currently running",
		}),

		VerdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proctor_verdicts_total",
			Help: "Total number of completed analyses, by verdict",
		}, []string{"cheated"}),
	}
}

// Registry returns the registry the collectors live on
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
