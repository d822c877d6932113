package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// TestCounters verifies each recorder increments its collector.
func TestCounters(t *testing.T) {
	m := New()
	m.Workout(ResultOK)
	m.Workout(ResultOK)
	m.Workout(ResultFailed)
	m.Lap(30 * time.Second)
	m.Lap(45 * time.Second)
	m.Chart(ResultSkipped)

	require.Equal(t, 2.0, testutil.ToFloat64(m.workouts.WithLabelValues(ResultOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.workouts.WithLabelValues(ResultFailed)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.laps))
	require.Equal(t, 1.0, testutil.ToFloat64(m.charts.WithLabelValues(ResultSkipped)))
	require.Equal(t, 1, testutil.CollectAndCount(m.lapDuration))
}

// TestWriteTextfile verifies the textfile carries the namespaced series.
func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Workout(ResultOK)
	m.Lap(30 * time.Second)
	started := time.Unix(1714546800, 0)
	m.Finish(started, started.Add(2*time.Second))

	path := filepath.Join(t.TempDir(), "swimlaps.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	require.Contains(t, out, `swimlaps_workouts_total{result="ok"} 1`)
	require.Contains(t, out, "swimlaps_laps_total 1")
	require.Contains(t, out, "swimlaps_lap_duration_seconds_count 1")
	require.Contains(t, out, "swimlaps_last_run_duration_seconds 2")
	require.True(t, strings.Contains(out, "swimlaps_last_run_timestamp_seconds 1.714546802e+09"))
}

// TestWriteTextfileBadPath verifies write failures are returned.
func TestWriteTextfileBadPath(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "swimlaps.prom"))
	require.Error(t, err)
}
