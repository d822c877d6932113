// Package metrics collects per-run counters and writes them in the Prometheus
// text format for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swimlaps"

// Result label values.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	workouts    *prometheus.CounterVec
	laps        prometheus.Counter
	charts      *prometheus.CounterVec
	lapDuration prometheus.Histogram
	lastRun     prometheus.Gauge
	runDuration prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		workouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workouts_total",
			Help:      "Workouts processed, by result.",
		}, []string{"result"}),
		laps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "laps_total",
			Help:      "Laps reconstructed.",
		}),
		charts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_total",
			Help:      "Charts rendered, by result.",
		}, []string{"result"}),
		lapDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lap_duration_seconds",
			Help:      "Swimming time per lap, rest excluded.",
			Buckets:   []float64{15, 20, 25, 30, 40, 50, 60, 90, 120},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the end of the last run.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	m.registry.MustRegister(m.workouts, m.laps, m.charts, m.lapDuration, m.lastRun, m.runDuration)
	return m
}

// Workout counts one workout with the given result.
func (m *Metrics) Workout(result string) {
	m.workouts.WithLabelValues(result).Inc()
}

// Lap records one reconstructed lap.
func (m *Metrics) Lap(swim time.Duration) {
	m.laps.Inc()
	m.lapDuration.Observe(swim.Seconds())
}

// Chart counts one chart with the given result.
func (m *Metrics) Chart(result string) {
	m.charts.WithLabelValues(result).Inc()
}

// Finish stamps the run end and its wall time.
func (m *Metrics) Finish(started, now time.Time) {
	m.lastRun.Set(float64(now.Unix()))
	m.runDuration.Set(now.Sub(started).Seconds())
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every collector to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
