package ingest

import (
	"fmt"
	"sort"
	"time"

	"github.com/claude/swimlaps/internal/models"
	"github.com/claude/swimlaps/internal/series"
)

// Tables holds the six tables extracted from one export. Slices are sorted
// by start time once Sort has run; parsers call it before returning.
type Tables struct {
	Workouts []models.WorkoutSummary
	Segments []models.SegmentEvent
	Laps     []models.LapEvent

	Distance    *series.Index[models.Sample]
	HeartRate   *series.Index[models.Sample]
	StrokeCount *series.Index[models.Sample]
}

// Counts summarizes table sizes for logging.
type Counts struct {
	Workouts    int `json:"workouts"`
	Segments    int `json:"segments"`
	Laps        int `json:"laps"`
	Distance    int `json:"distance_samples"`
	HeartRate   int `json:"heart_rate_samples"`
	StrokeCount int `json:"stroke_count_samples"`
}

// Window is one workout with every table clipped to its time span.
type Window struct {
	Workout     models.WorkoutSummary
	Segments    []models.SegmentEvent
	Laps        []models.LapEvent
	Distance    *series.Index[models.Sample]
	HeartRate   *series.Index[models.Sample]
	StrokeCount *series.Index[models.Sample]
}

func sampleStart(s models.Sample) time.Time { return s.Start }

// NewSampleIndex returns an empty sample index keyed by start time.
func NewSampleIndex() *series.Index[models.Sample] {
	return series.New(sampleStart)
}

// NewTables returns empty tables ready for a parser to fill.
func NewTables() *Tables {
	return &Tables{
		Distance:    NewSampleIndex(),
		HeartRate:   NewSampleIndex(),
		StrokeCount: NewSampleIndex(),
	}
}

// Sort orders workouts, segments and laps by start time.
func (t *Tables) Sort() {
	sort.SliceStable(t.Workouts, func(i, j int) bool {
		return t.Workouts[i].Start.Before(t.Workouts[j].Start)
	})
	sort.SliceStable(t.Segments, func(i, j int) bool {
		return t.Segments[i].Start.Before(t.Segments[j].Start)
	})
	sort.SliceStable(t.Laps, func(i, j int) bool {
		return t.Laps[i].Start.Before(t.Laps[j].Start)
	})
}

// Counts returns the size of each table.
func (t *Tables) Counts() Counts {
	return Counts{
		Workouts:    len(t.Workouts),
		Segments:    len(t.Segments),
		Laps:        len(t.Laps),
		Distance:    t.Distance.Len(),
		HeartRate:   t.HeartRate.Len(),
		StrokeCount: t.StrokeCount.Len(),
	}
}

// Workout returns the workout starting exactly at start.
func (t *Tables) Workout(start time.Time) (models.WorkoutSummary, error) {
	for _, w := range t.Workouts {
		if w.Start.Equal(start) {
			return w, nil
		}
	}
	return models.WorkoutSummary{}, fmt.Errorf("no workout starts at %s", start.Format(models.ExportTimeLayout))
}

// WorkoutsOn returns the workouts whose start falls on the given day
// ("2006-01-02", in the workout's own zone).
func (t *Tables) WorkoutsOn(date string) []models.WorkoutSummary {
	var out []models.WorkoutSummary
	for _, w := range t.Workouts {
		if w.Date() == date {
			out = append(out, w)
		}
	}
	return out
}

// Window clips every table to [w.Start, w.End], both bounds inclusive.
// Events are selected by their start time, like samples.
func (t *Tables) Window(w models.WorkoutSummary) Window {
	win := Window{
		Workout:     w,
		Distance:    t.Distance.Clip(w.Start, w.End),
		HeartRate:   t.HeartRate.Clip(w.Start, w.End),
		StrokeCount: t.StrokeCount.Clip(w.Start, w.End),
	}
	for _, s := range t.Segments {
		if inside(s.Start, w.Start, w.End) {
			win.Segments = append(win.Segments, s)
		}
	}
	for _, l := range t.Laps {
		if inside(l.Start, w.Start, w.End) {
			win.Laps = append(win.Laps, l)
		}
	}
	return win
}

func inside(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// Table names, shared by both export formats and used in ParseError.
const (
	TableWorkoutSummary = "workoutSummary"
	TableSegments       = "workoutEventSegment"
	TableLaps           = "workoutEventLap"
	TableDistance       = "distanceSwimming"
	TableHeartRate      = "heartRate"
	TableStrokeCount    = "swimmingStrokeCount"
)
