// Run metrics for the contour extraction pipeline
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contours"

// Task outcomes
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Video outcomes
const (
	VideoProcessed = "processed"
	VideoUnopened  = "unopened"
	VideoEmpty     = "empty"
)

// RunMetrics collects counters for one run on its own registry.
type RunMetrics struct {
	registry *prometheus.Registry

	FramesRead      prometheus.Counter
	FramesSkipped   prometheus.Counter
	TasksDispatched prometheus.Counter
	TasksCollected  *prometheus.CounterVec
	Regions         prometheus.Counter
	Videos          *prometheus.CounterVec
	InFlight        prometheus.Gauge
	AnalysisSeconds prometheus.Histogram
}

func New() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),

		FramesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_read_total",
			Help:      "Frames decoded, including skipped ones",
		}),
		FramesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames rejected by the brightness gate",
		}),
		TasksDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_dispatched_total",
			Help:      "Analysis tasks submitted to the worker pool",
		}),
		TasksCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_collected_total",
			Help:      "Analysis tasks collected, by outcome",
		}, []string{"outcome"}),
		Regions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_total",
			Help:      "Region measurements written",
		}),
		Videos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_total",
			Help:      "Videos handled, by outcome",
		}, []string{"status"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Tasks submitted but not yet collected",
		}),
		AnalysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent analysing one frame",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}

	m.registry.MustRegister(
		m.FramesRead,
		m.FramesSkipped,
		m.TasksDispatched,
		m.TasksCollected,
		m.Regions,
		m.Videos,
		m.InFlight,
		m.AnalysisSeconds,
	)

	// Pre-create label values so they show up as zero in the export.
	for _, outcome := range []string{OutcomeOK, OutcomeFailed} {
		m.TasksCollected.WithLabelValues(outcome)
	}
	for _, status := range []string{VideoProcessed, VideoUnopened, VideoEmpty} {
		m.Videos.WithLabelValues(status)
	}

	return m
}

// Registry returns the registry all run metrics are registered on.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for the node_exporter textfile collector.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
