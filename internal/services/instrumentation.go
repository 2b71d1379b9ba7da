package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Instrumentation holds the Prometheus metrics of the detection service.
type Instrumentation struct {
	Runs        *prometheus.CounterVec
	Events      *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	Reruns      prometheus.Counter
}

// NewInstrumentation creates the service metrics and registers them with reg.
func NewInstrumentation(reg prometheus.Registerer) *Instrumentation {
	in := &Instrumentation{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visme_detection_runs_total",
				Help: "Total number of detection runs by kind and event source",
			},
			[]string{"kind", "source"},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visme_detected_events_total",
				Help: "Total number of events produced by detection runs",
			},
			[]string{"kind", "channel"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "visme_detection_duration_seconds",
				Help:    "Duration of a detection run in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"kind"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visme_result_cache_hits_total",
				Help: "Total number of detection results served from the cache",
			},
			[]string{"kind"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "visme_result_cache_misses_total",
				Help: "Total number of detection requests not found in the cache",
			},
			[]string{"kind"},
		),
		Reruns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "visme_reruns_total",
				Help: "Total number of full re-detections after a configuration change",
			},
		),
	}
	reg.MustRegister(in.Runs, in.Events, in.Duration, in.CacheHits, in.CacheMisses, in.Reruns)
	return in
}
