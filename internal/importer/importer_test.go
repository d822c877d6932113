package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/claude/swimlaps/internal/chart"
	"github.com/claude/swimlaps/internal/config"
	"github.com/claude/swimlaps/internal/ingest"
	"github.com/claude/swimlaps/internal/ingest/swimjson"
	"github.com/claude/swimlaps/internal/metrics"
	"github.com/claude/swimlaps/internal/models"
	"github.com/claude/swimlaps/internal/swim"
)

var (
	day1 = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 5, 3, 7, 0, 0, 0, time.UTC)
)

type doc map[string][]map[string]any

func stamp(base time.Time, sec int) string {
	return base.Add(time.Duration(sec) * time.Second).Format(models.ExportTimeLayout)
}

// addWorkout appends one 25 m pool workout with the given lap spans in
// seconds from its start. Laps listed in noDistance get no distance sample.
func (d doc) addWorkout(start time.Time, endSec int, laps [][2]int, noDistance ...int) {
	d["workoutSummary"] = append(d["workoutSummary"], map[string]any{
		"startDate":   stamp(start, 0),
		"endDate":     stamp(start, endSec),
		"HKLapLength": "25 m",
		"sourceName":  "Watch",
	})
	d["workoutEventSegment"] = append(d["workoutEventSegment"], map[string]any{
		"start": stamp(start, laps[0][0]),
		"end":   stamp(start, laps[len(laps)-1][1]),
	})
	skip := map[int]bool{}
	for _, i := range noDistance {
		skip[i] = true
	}
	for i, l := range laps {
		d["workoutEventLap"] = append(d["workoutEventLap"], map[string]any{
			"start":                 stamp(start, l[0]),
			"end":                   stamp(start, l[1]),
			"HKSwimmingStrokeStyle": 2,
		})
		if !skip[i] {
			d["distanceSwimming"] = append(d["distanceSwimming"], map[string]any{
				"startDate": stamp(start, l[0]), "endDate": stamp(start, l[1]), "value": 25, "unit": "m",
			})
		}
		d["swimmingStrokeCount"] = append(d["swimmingStrokeCount"], map[string]any{
			"startDate": stamp(start, l[0]), "endDate": stamp(start, l[1]), "value": 10 + i,
		})
		d["heartRate"] = append(d["heartRate"], map[string]any{
			"startDate": stamp(start, l[0]+5), "endDate": stamp(start, l[0]+5), "value": 120 + i,
		})
	}
}

// exportJSON has a good workout on day1 and, on day2, a workout whose second
// lap has no distance sample.
func exportJSON(t *testing.T) []byte {
	t.Helper()
	d := doc{}
	for _, key := range []string{
		"workoutSummary", "workoutEventSegment", "workoutEventLap",
		"distanceSwimming", "heartRate", "swimmingStrokeCount",
	} {
		d[key] = []map[string]any{}
	}
	d.addWorkout(day1, 150, [][2]int{{5, 35}, {37, 67}, {82, 112}, {115, 145}})
	d.addWorkout(day2, 100, [][2]int{{5, 35}, {40, 70}}, 1)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	return data
}

const exportXML = `<?xml version="1.0" encoding="UTF-8"?>
<HealthData locale="en_US">
 <Record type="HKQuantityTypeIdentifierDistanceSwimming" sourceName="Watch" unit="m" startDate="2024-05-01 07:00:10 +0000" endDate="2024-05-01 07:00:40 +0000" value="25"/>
 <Record type="HKQuantityTypeIdentifierSwimmingStrokeCount" sourceName="Watch" unit="count" startDate="2024-05-01 07:00:10 +0000" endDate="2024-05-01 07:00:40 +0000" value="12"/>
 <Workout workoutActivityType="HKWorkoutActivityTypeSwimming" duration="1" durationUnit="min" sourceName="Watch" startDate="2024-05-01 07:00:00 +0000" endDate="2024-05-01 07:01:00 +0000">
  <MetadataEntry key="HKLapLength" value="25 m"/>
  <WorkoutEvent type="HKWorkoutEventTypeLap" date="2024-05-01 07:00:10 +0000" duration="0.5" durationUnit="min">
   <MetadataEntry key="HKSwimmingStrokeStyle" value="2"/>
  </WorkoutEvent>
 </Workout>
</HealthData>`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeZip(t *testing.T, dir, name string, entries map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for entry, data := range entries {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return writeFile(t, dir, name, buf.Bytes())
}

func testConfig(dir string) *config.Config {
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(dir, "charts")
	cfg.Charts.Width = 320
	cfg.Charts.Height = 240
	return cfg
}

func newImporter(cfg *config.Config, out io.Writer, dryRun bool) *Importer {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, log, metrics.New(), out, dryRun)
}

// TestImportJSON runs the full pipeline on a JSON export: the good workout is
// printed and charted, the broken one is counted and skipped.
func TestImportJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "swim.json", exportJSON(t))
	cfg := testConfig(dir)
	cfg.Metrics.Textfile = filepath.Join(dir, "swimlaps.prom")

	var out bytes.Buffer
	stats, err := newImporter(cfg, &out, false).Import(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, ingest.FormatJSON, stats.Format)
	require.Positive(t, stats.InputBytes)
	require.Equal(t, 2, stats.Tables.Workouts)
	require.Equal(t, 6, stats.Tables.Laps)
	require.Equal(t, 2, stats.WorkoutsSelected)
	require.Equal(t, 1, stats.WorkoutsProcessed)
	require.Equal(t, 1, stats.WorkoutsFailed)
	require.Equal(t, 4, stats.LapsReconstructed)
	require.Equal(t, 1, stats.ChartsWritten)
	require.Zero(t, stats.ChartsFailed)

	text := out.String()
	require.Contains(t, text, "2024-05-01")
	require.Contains(t, text, "100m in 25m pool")
	require.Contains(t, text, "100m")
	require.Contains(t, text, "segment")
	require.NotContains(t, text, "2024-05-03", "failed workouts print nothing")

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "2024-05-01 100m.png"))
	require.NoError(t, err)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	require.Contains(t, string(prom), `swimlaps_workouts_total{result="failed"} 1`)
	require.Contains(t, string(prom), "swimlaps_laps_total 4")
}

// TestImportSameDayCharts verifies two workouts sharing a chart name leave one
// whole image behind, the later workout's, with no temporary files.
func TestImportSameDayCharts(t *testing.T) {
	dir := t.TempDir()
	morning := day1
	evening := day1.Add(10 * time.Hour)
	d := doc{}
	d.addWorkout(morning, 80, [][2]int{{5, 35}, {37, 67}})
	d.addWorkout(evening, 120, [][2]int{{10, 50}, {60, 100}})
	data, err := json.Marshal(d)
	require.NoError(t, err)
	path := writeFile(t, dir, "swim.json", data)

	cfg := testConfig(dir)
	cfg.Workers = 4
	stats, err := newImporter(cfg, io.Discard, false).Import(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, stats.WorkoutsProcessed)
	require.Equal(t, 2, stats.ChartsWritten)

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "2024-05-01 50m.png", entries[0].Name())

	got, err := os.ReadFile(filepath.Join(cfg.OutputDir, entries[0].Name()))
	require.NoError(t, err)

	tables, err := swimjson.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	renderer := chart.New(dir, chart.Options{Width: cfg.Charts.Width, Height: cfg.Charts.Height})
	draw := func(start time.Time) []byte {
		w, err := tables.Workout(start)
		require.NoError(t, err)
		win := tables.Window(w)
		laps, err := swim.Reconstruct(win, swim.Options{RestThreshold: cfg.RestThreshold})
		require.NoError(t, err)
		png, err := renderer.Render(win, laps, swim.Summarize(laps))
		require.NoError(t, err)
		return png
	}
	require.Equal(t, draw(evening), got)
	require.NotEqual(t, draw(morning), got)
}

// TestImportStrict verifies a broken workout aborts the run in strict mode
// and the cause stays inspectable.
func TestImportStrict(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "swim.json", exportJSON(t))
	cfg := testConfig(dir)
	cfg.Strict = true
	cfg.Charts.Enabled = false

	_, err := newImporter(cfg, io.Discard, false).Import(context.Background(), path)
	var jerr *swim.JoinError
	require.ErrorAs(t, err, &jerr)
	require.Equal(t, ingest.TableDistance, jerr.Metric)
	require.Equal(t, 1, jerr.Lap)
}

// TestImportArchiveDryRun verifies the zip reader picks the document named
// after the archive and that dry-run writes no files.
func TestImportArchiveDryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeZip(t, dir, "swim.zip", map[string][]byte{
		"swim.json":            exportJSON(t),
		"__MACOSX/._swim.json": []byte("resource fork"),
		"notes.json":           []byte("{}"),
	})
	cfg := testConfig(dir)
	cfg.Metrics.Textfile = filepath.Join(dir, "swimlaps.prom")

	var out bytes.Buffer
	stats, err := newImporter(cfg, &out, true).Import(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, ingest.FormatArchive, stats.Format)
	require.Equal(t, 1, stats.WorkoutsProcessed)
	require.Zero(t, stats.ChartsWritten)
	require.Contains(t, out.String(), "100m in 25m pool")

	_, err = os.Stat(cfg.OutputDir)
	require.True(t, os.IsNotExist(err), "dry run must not create the output directory")
	_, err = os.Stat(cfg.Metrics.Textfile)
	require.True(t, os.IsNotExist(err), "dry run must not write metrics")
}

// TestImportArchiveXML verifies an Apple Health export.zip is read through the XML parser.
func TestImportArchiveXML(t *testing.T) {
	dir := t.TempDir()
	path := writeZip(t, dir, "export.zip", map[string][]byte{
		"apple_health_export/export.xml":     []byte(exportXML),
		"apple_health_export/export_cda.xml": []byte("<ClinicalDocument/>"),
	})
	cfg := testConfig(dir)
	cfg.Charts.Enabled = false

	stats, err := newImporter(cfg, io.Discard, false).Import(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, stats.WorkoutsProcessed)
	require.Equal(t, 1, stats.LapsReconstructed)
}

// TestImportDateFilter verifies only workouts on the requested dates run and
// unmatched dates are reported.
func TestImportDateFilter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "swim.json", exportJSON(t))
	cfg := testConfig(dir)
	cfg.Charts.Enabled = false
	cfg.Dates = []string{"2024-05-01", "2024-06-01", "2024-05-01"}

	stats, err := newImporter(cfg, io.Discard, false).Import(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, stats.WorkoutsSelected)
	require.Equal(t, 1, stats.WorkoutsProcessed)
	require.Zero(t, stats.WorkoutsFailed)
	require.Equal(t, []string{"2024-06-01"}, stats.UnmatchedDates)
}

// TestImportMalformedExport verifies a structural error aborts with a ParseError.
func TestImportMalformedExport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "swim.json", []byte(`{"workoutSummary": []}`))

	_, err := newImporter(testConfig(dir), io.Discard, false).Import(context.Background(), path)
	var perr *ingest.ParseError
	require.ErrorAs(t, err, &perr)
	require.True(t, errors.Is(err, ingest.ErrMissing))
}

// TestImportUnknownFormat verifies unsupported extensions are refused.
func TestImportUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "swim.csv", []byte("a,b\n"))

	_, err := newImporter(testConfig(dir), io.Discard, false).Import(context.Background(), path)
	require.ErrorIs(t, err, ingest.ErrUnknownFormat)
}

// TestImportCancelled verifies a cancelled context stops the run.
func TestImportCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "swim.json", exportJSON(t))
	cfg := testConfig(dir)
	cfg.Charts.Enabled = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := newImporter(cfg, io.Discard, false).Import(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, stats.WorkoutsProcessed)
}

// TestReadArchive covers entry selection when the archive is ambiguous or empty.
func TestReadArchive(t *testing.T) {
	dir := t.TempDir()

	t.Run("single json", func(t *testing.T) {
		path := writeZip(t, dir, "a.zip", map[string][]byte{"data/other.json": []byte("{}")})
		entry, err := ReadArchive(path)
		require.NoError(t, err)
		require.Equal(t, "data/other.json", entry.Name)
		require.Equal(t, ingest.FormatJSON, entry.Format)
		require.Equal(t, "{}", string(entry.Data))
	})

	t.Run("ambiguous", func(t *testing.T) {
		path := writeZip(t, dir, "b.zip", map[string][]byte{"x.json": []byte("{}"), "y.json": []byte("{}")})
		_, err := ReadArchive(path)
		require.Error(t, err)
		require.True(t, strings.Contains(err.Error(), "b.json"))
	})

	t.Run("empty", func(t *testing.T) {
		path := writeZip(t, dir, "c.zip", map[string][]byte{"readme.txt": []byte("hi")})
		_, err := ReadArchive(path)
		require.Error(t, err)
	})

	t.Run("not a zip", func(t *testing.T) {
		path := writeFile(t, dir, "d.zip", []byte("plain text"))
		_, err := ReadArchive(path)
		require.Error(t, err)
	})
}
