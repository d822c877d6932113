package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/claude/swimlaps/internal/chart"
	"github.com/claude/swimlaps/internal/config"
	"github.com/claude/swimlaps/internal/ingest"
	"github.com/claude/swimlaps/internal/ingest/healthxml"
	"github.com/claude/swimlaps/internal/ingest/swimjson"
	"github.com/claude/swimlaps/internal/metrics"
	"github.com/claude/swimlaps/internal/models"
	"github.com/claude/swimlaps/internal/report"
)

// Stats tracks import progress.
type Stats struct {
	Format     ingest.Format
	InputBytes int64
	Tables     ingest.Counts

	WorkoutsSelected  int
	WorkoutsProcessed int
	WorkoutsFailed    int
	LapsReconstructed int
	ChartsWritten     int
	ChartsFailed      int

	UnmatchedDates []string
}

// Importer reads one export, reconstructs the laps of each selected workout
// and prints their tables, writing a chart per workout.
type Importer struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	out     io.Writer
	dryRun  bool
	charts  *chart.Renderer
	stats   Stats
}

// New creates a new Importer. Tables are printed to out. In dry-run mode no
// files are written: neither charts nor the metrics textfile.
func New(cfg *config.Config, log *slog.Logger, m *metrics.Metrics, out io.Writer, dryRun bool) *Importer {
	imp := &Importer{cfg: cfg, log: log, metrics: m, out: out, dryRun: dryRun}
	if cfg.Charts.Enabled && !dryRun {
		imp.charts = chart.New(cfg.OutputDir, chart.Options{Width: cfg.Charts.Width, Height: cfg.Charts.Height})
	}
	return imp
}

// Import processes the export at path. A malformed export aborts the run. A
// malformed workout is logged and counted, and aborts the run only in strict
// mode.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	started := time.Now()

	tables, err := imp.extract(path)
	if err != nil {
		return &imp.stats, fmt.Errorf("extracting %s: %w", filepath.Base(path), err)
	}
	imp.stats.Tables = tables.Counts()
	c := imp.stats.Tables
	imp.log.Info("tables extracted",
		"workouts", c.Workouts,
		"segments", c.Segments,
		"laps", c.Laps,
		"distance_samples", c.Distance,
		"heart_rate_samples", c.HeartRate,
		"stroke_count_samples", c.StrokeCount,
	)

	workouts := imp.selectWorkouts(tables)
	imp.stats.WorkoutsSelected = len(workouts)
	if len(workouts) == 0 {
		imp.log.Warn("no workouts selected", "dates", imp.cfg.Dates)
		return &imp.stats, imp.finish(started)
	}

	if imp.charts != nil {
		if err := os.MkdirAll(imp.cfg.OutputDir, 0o755); err != nil {
			return &imp.stats, fmt.Errorf("creating output directory: %w", err)
		}
	}

	results := make([]workoutResult, len(workouts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.cfg.Workers)
	for i, w := range workouts {
		g.Go(func() error {
			results[i] = imp.correlateWorkout(gctx, tables, w)
			if err := results[i].Err; err != nil && imp.cfg.Strict {
				return fmt.Errorf("workout %s: %w", w.Start.Format(models.ExportTimeLayout), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		imp.record(results)
		return &imp.stats, err
	}
	if err := ctx.Err(); err != nil {
		return &imp.stats, err
	}

	imp.saveCharts(results)
	imp.record(results)
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if err := imp.print(res); err != nil {
			return &imp.stats, fmt.Errorf("printing tables: %w", err)
		}
	}

	return &imp.stats, imp.finish(started)
}

// extract detects the export format and decodes it into tables.
func (imp *Importer) extract(path string) (*ingest.Tables, error) {
	format, err := ingest.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	imp.stats.Format = format
	imp.stats.InputBytes = info.Size()
	imp.log.Info("reading export", "path", path, "format", format, "size", humanize.Bytes(uint64(info.Size())))

	switch format {
	case ingest.FormatXML:
		return healthxml.ParseFile(path)
	case ingest.FormatJSON:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return swimjson.Parse(f)
	case ingest.FormatArchive:
		entry, err := ReadArchive(path)
		if err != nil {
			return nil, err
		}
		imp.log.Info("archive entry", "name", entry.Name, "format", entry.Format, "size", humanize.Bytes(uint64(len(entry.Data))))
		if entry.Format == ingest.FormatXML {
			return healthxml.Parse(bytes.NewReader(entry.Data))
		}
		return swimjson.Parse(bytes.NewReader(entry.Data))
	}
	return nil, ingest.ErrUnknownFormat
}

// selectWorkouts returns every workout, or those on the configured dates in
// start order.
func (imp *Importer) selectWorkouts(t *ingest.Tables) []models.WorkoutSummary {
	if len(imp.cfg.Dates) == 0 {
		return t.Workouts
	}
	seen := map[string]bool{}
	var out []models.WorkoutSummary
	for _, d := range imp.cfg.Dates {
		if seen[d] {
			continue
		}
		seen[d] = true
		ws := t.WorkoutsOn(d)
		if len(ws) == 0 {
			imp.log.Warn("no workout on date", "date", d)
			imp.stats.UnmatchedDates = append(imp.stats.UnmatchedDates, d)
			continue
		}
		out = append(out, ws...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// saveCharts writes the drawn charts one at a time in workout order. Two
// workouts on the same day with the same distance share a file name; the
// later one replaces the earlier.
func (imp *Importer) saveCharts(results []workoutResult) {
	if imp.charts == nil {
		return
	}
	written := map[string]time.Time{}
	for i := range results {
		res := &results[i]
		if res.Err != nil || res.PNG == nil {
			continue
		}
		name := chart.Filename(res.Workout, res.Summary)
		if prev, ok := written[name]; ok {
			imp.log.Warn("chart name reused, replacing earlier chart",
				"name", name,
				"replaced_start", prev.Format(models.ExportTimeLayout),
				"start", res.Workout.Start.Format(models.ExportTimeLayout),
			)
		}
		res.Chart, res.ChartErr = imp.charts.Save(name, res.PNG)
		res.PNG = nil
		if res.ChartErr == nil {
			written[name] = res.Workout.Start
		}
	}
}

// record folds per-workout results into stats, metrics and the log.
func (imp *Importer) record(results []workoutResult) {
	for _, res := range results {
		w := res.Workout
		switch {
		case errors.Is(res.Err, context.Canceled):
			continue
		case res.Err != nil:
			imp.stats.WorkoutsFailed++
			imp.metrics.Workout(metrics.ResultFailed)
			imp.log.Warn("workout failed", "workout", w.ID, "start", w.Start.Format(models.ExportTimeLayout), "error", res.Err)
			continue
		}

		imp.stats.WorkoutsProcessed++
		imp.stats.LapsReconstructed += len(res.Laps)
		imp.metrics.Workout(metrics.ResultOK)
		for _, l := range res.Laps {
			imp.metrics.Lap(l.Duration)
		}
		imp.log.Debug("workout reconstructed", "workout", w.ID, "laps", len(res.Laps), "distance", res.Summary.Distance)

		switch {
		case res.ChartErr != nil:
			imp.stats.ChartsFailed++
			imp.metrics.Chart(metrics.ResultFailed)
			imp.log.Warn("chart failed", "workout", w.ID, "error", res.ChartErr)
		case res.Chart != "":
			imp.stats.ChartsWritten++
			imp.metrics.Chart(metrics.ResultOK)
			imp.log.Info("chart written", "path", res.Chart)
		default:
			imp.metrics.Chart(metrics.ResultSkipped)
		}
	}
}

// print writes the enabled tables of one workout.
func (imp *Importer) print(res workoutResult) error {
	if err := report.Header(imp.out, res.Workout, res.Summary); err != nil {
		return err
	}
	if len(res.Laps) == 0 {
		_, err := fmt.Fprintln(imp.out, "no laps recorded")
		return err
	}
	if imp.cfg.Tables.Laps {
		if err := section(imp.out, func(w io.Writer) error { return report.Laps(w, res.Laps) }); err != nil {
			return err
		}
	}
	for _, bg := range res.Groups {
		if err := section(imp.out, func(w io.Writer) error { return report.Groups(w, bg.Groups, bg.Bucket) }); err != nil {
			return err
		}
	}
	if imp.cfg.Tables.Segments && len(res.Segments) > 0 {
		if err := section(imp.out, func(w io.Writer) error { return report.Segments(w, res.Segments) }); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(imp.out)
	return err
}

func section(w io.Writer, table func(io.Writer) error) error {
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return table(w)
}

// finish stamps the run metrics and writes the textfile when one is configured.
func (imp *Importer) finish(started time.Time) error {
	imp.metrics.Finish(started, time.Now())
	if imp.dryRun || imp.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := imp.metrics.WriteTextfile(imp.cfg.Metrics.Textfile); err != nil {
		return err
	}
	imp.log.Info("metrics written", "path", imp.cfg.Metrics.Textfile)
	return nil
}
