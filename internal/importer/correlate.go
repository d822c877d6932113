package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/swimlaps/internal/ingest"
	"github.com/claude/swimlaps/internal/models"
	"github.com/claude/swimlaps/internal/swim"
)

// workoutResult is everything derived for one workout. Err is set when the
// workout's data could not be reconstructed; ChartErr never affects the tables.
// PNG holds the drawn chart until it is saved.
type workoutResult struct {
	Workout  models.WorkoutSummary
	Laps     []swim.Lap
	Summary  swim.Summary
	Groups   []bucketGroups
	Segments []swim.SegmentSummary

	PNG      []byte
	Chart    string
	ChartErr error
	Err      error
}

type bucketGroups struct {
	Bucket swim.Bucket
	Groups []swim.LapGroup
}

// correlateWorkout clips the tables to one workout, joins the sample streams
// onto its laps and aggregates them. Tables are only read, so workouts can be
// processed concurrently.
func (imp *Importer) correlateWorkout(ctx context.Context, t *ingest.Tables, w models.WorkoutSummary) workoutResult {
	res := workoutResult{Workout: w}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	win := t.Window(w)
	laps, err := swim.Reconstruct(win, swim.Options{RestThreshold: imp.cfg.RestThreshold})
	if err != nil {
		res.Err = err
		return res
	}
	res.Laps = laps
	res.Summary = swim.Summarize(laps)

	for _, size := range imp.cfg.Tables.Groups {
		b := swim.Bucket(size)
		groups, err := swim.Group(laps, b)
		if errors.Is(err, swim.ErrBucketUnavailable) {
			imp.log.Debug("bucket skipped", "workout", w.ID, "bucket", size, "lap_length", w.LapLength)
			continue
		}
		if err != nil {
			res.Err = fmt.Errorf("grouping %d m: %w", size, err)
			return res
		}
		res.Groups = append(res.Groups, bucketGroups{Bucket: b, Groups: groups})
	}
	res.Segments = swim.Segments(laps)

	if imp.charts != nil && len(laps) > 0 {
		res.PNG, res.ChartErr = imp.charts.Render(win, laps, res.Summary)
	}
	return res
}
