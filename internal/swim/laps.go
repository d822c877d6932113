// Package swim reconstructs per-lap statistics for a swimming workout and
// aggregates them into distance buckets and stroke segments.
package swim

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/claude/swimlaps/internal/ingest"
	"github.com/claude/swimlaps/internal/models"
)

const (
	// DefaultRestThreshold is the gap below which a pause at the wall counts
	// as continuous swimming rather than a stop.
	DefaultRestThreshold = 10 * time.Second

	// NoSegment marks a lap that no segment event covers.
	NoSegment = -1

	// orderingTolerance absorbs rounding in fractional event timestamps.
	orderingTolerance = time.Millisecond
)

// Options tunes lap reconstruction.
type Options struct {
	RestThreshold time.Duration
}

func (o Options) restThreshold() time.Duration {
	if o.RestThreshold <= 0 {
		return DefaultRestThreshold
	}
	return o.RestThreshold
}

// Lap is a lap event joined with its measurements and derived timings.
// Time and TimeAgg are measured from the workout start.
type Lap struct {
	Index       int
	Start       time.Time
	End         time.Time
	NextStart   time.Time
	StrokeStyle models.StrokeStyle
	Style       string
	SWOLF       *float64

	DistanceSwimming float64
	StrokeCount      float64
	HeartRate        *float64

	Duration         time.Duration
	DurationWithRest time.Duration
	Rest             time.Duration
	Distance         float64
	Time             time.Duration

	DurationAgg time.Duration
	RestAgg     time.Duration
	TimeAgg     time.Duration

	Segment   int
	LapLength float64
	Group100  int
	Group50   int
	Group25   int // zero unless the pool is 25 m
}

// Swolf returns the SWOLF score recorded on the lap event, or stroke count
// plus lap seconds when the watch did not record one.
func (l Lap) Swolf() float64 {
	if l.SWOLF != nil {
		return *l.SWOLF
	}
	return l.StrokeCount + l.Duration.Seconds()
}

// ReconstructWorkout finds the workout starting at start, clips the tables to
// it and reconstructs its laps.
func ReconstructWorkout(t *ingest.Tables, start time.Time, opts Options) ([]Lap, error) {
	w, err := t.Workout(start)
	if err != nil {
		return nil, err
	}
	return Reconstruct(t.Window(w), opts)
}

// Reconstruct derives the lap table for one workout window. Any missing or
// ambiguous join, negative rest or unknown stroke style fails the workout.
func Reconstruct(win ingest.Window, opts Options) ([]Lap, error) {
	w := win.Workout
	if w.LapLength <= 0 {
		return nil, fmt.Errorf("workout %s: %w", w.ID, ErrNoLapLength)
	}
	if len(win.Laps) == 0 {
		return nil, nil
	}

	events := make([]models.LapEvent, len(win.Laps))
	copy(events, win.Laps)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})

	threshold := opts.restThreshold()
	laps := make([]Lap, len(events))
	var cumulative float64

	for i, ev := range events {
		lap := Lap{
			Index:       i,
			Start:       ev.Start,
			End:         ev.End,
			StrokeStyle: ev.StrokeStyle,
			SWOLF:       ev.SWOLF,
			Segment:     NoSegment,
			LapLength:   w.LapLength,
		}

		if ev.End.Before(ev.Start) {
			return nil, &OrderingError{Lap: i, Start: ev.Start, Field: "duration", Amount: ev.End.Sub(ev.Start)}
		}

		dist, err := joinOne(win, i, ev.Start, ingest.TableDistance)
		if err != nil {
			return nil, err
		}
		strokes, err := joinOne(win, i, ev.Start, ingest.TableStrokeCount)
		if err != nil {
			return nil, err
		}
		lap.DistanceSwimming = dist.Value
		lap.StrokeCount = strokes.Value

		label, ok := ev.StrokeStyle.Label()
		if !ok {
			return nil, &UnmappedStyleError{Lap: i, Start: ev.Start, Code: ev.StrokeStyle}
		}
		lap.Style = label

		if i+1 < len(events) {
			lap.NextStart = events[i+1].Start
		} else {
			lap.NextStart = w.End
		}

		lap.Duration = lap.End.Sub(lap.Start)
		lap.DurationWithRest = lap.NextStart.Sub(lap.Start)
		lap.Rest = lap.DurationWithRest - lap.Duration
		if lap.Rest < 0 {
			if lap.Rest < -orderingTolerance {
				return nil, &OrderingError{Lap: i, Start: ev.Start, Field: "rest", Amount: lap.Rest}
			}
			lap.Rest = 0
			lap.DurationWithRest = lap.Duration
		}

		cumulative += lap.DistanceSwimming
		lap.Distance = cumulative
		lap.Time = lap.End.Sub(w.Start)
		lap.HeartRate = meanValue(win.HeartRate.Range(lap.Start, lap.End))

		if lap.Rest < threshold {
			lap.DurationAgg = lap.DurationWithRest
			lap.RestAgg = 0
			lap.TimeAgg = lap.NextStart.Sub(w.Start)
		} else {
			lap.DurationAgg = lap.Duration
			lap.RestAgg = lap.Rest
			lap.TimeAgg = lap.End.Sub(w.Start)
		}

		lap.Group100 = bucketKey(lap.Distance, w.LapLength, 100)
		lap.Group50 = bucketKey(lap.Distance, w.LapLength, 50)
		if w.LapLength == 25 {
			lap.Group25 = bucketKey(lap.Distance, w.LapLength, 25)
		}

		laps[i] = lap
	}

	// The Workout app measures the first lap from the workout start.
	laps[0].DurationAgg = laps[0].TimeAgg

	assignSegments(laps, win.Segments)
	return laps, nil
}

func joinOne(win ingest.Window, lap int, at time.Time, metric string) (models.Sample, error) {
	var matches []models.Sample
	switch metric {
	case ingest.TableDistance:
		matches = win.Distance.At(at)
	case ingest.TableStrokeCount:
		matches = win.StrokeCount.At(at)
	}
	if len(matches) != 1 {
		return models.Sample{}, &JoinError{Lap: lap, Start: at, Metric: metric, Matches: len(matches)}
	}
	return matches[0], nil
}

// meanValue returns nil for an empty slice rather than zero.
func meanValue(samples []models.Sample) *float64 {
	if len(samples) == 0 {
		return nil
	}
	var sum float64
	for _, s := range samples {
		sum += s.Value
	}
	mean := sum / float64(len(samples))
	return &mean
}

// assignSegments walks segments in start order and stamps each lap whose
// midpoint falls inside [segment.Start, segment.End] with the segment's
// position. A later segment overwrites an earlier one.
func assignSegments(laps []Lap, segments []models.SegmentEvent) {
	ordered := make([]models.SegmentEvent, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	for idx, seg := range ordered {
		for i := range laps {
			mid := laps[i].Start.Add(laps[i].Duration / 2)
			if !mid.Before(seg.Start) && !mid.After(seg.End) {
				laps[i].Segment = idx
			}
		}
	}
}

// bucketKey maps a cumulative distance to a 1-based bucket of bucket metres,
// counting whole pool lengths so buckets line up regardless of pool size.
func bucketKey(distance, lapLength, bucket float64) int {
	perBucket := bucket / lapLength
	lengths := math.Floor(distance / lapLength)
	return int(math.Floor((lengths + perBucket - 1) / perBucket))
}
