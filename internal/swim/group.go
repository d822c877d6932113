package swim

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/claude/swimlaps/internal/models"
)

// Bucket is a fixed real-world distance laps are grouped into.
type Bucket int

const (
	Bucket25  Bucket = 25
	Bucket50  Bucket = 50
	Bucket100 Bucket = 100
)

// ErrBucketUnavailable is returned when the pool length has no keys for the
// requested bucket. 25 m buckets exist only in a 25 m pool.
var ErrBucketUnavailable = errors.New("bucket not available for this pool")

// GroupKey returns the lap's key for b, and false when the lap has none.
func (l Lap) GroupKey(b Bucket) (int, bool) {
	switch b {
	case Bucket100:
		return l.Group100, true
	case Bucket50:
		return l.Group50, true
	case Bucket25:
		return l.Group25, l.LapLength == 25
	}
	return 0, false
}

// LapGroup aggregates the consecutive laps sharing one bucket key.
type LapGroup struct {
	Key         int
	Laps        int
	Distance    float64 // cumulative distance at the end of the group
	Style       string
	TimeAgg     time.Duration
	DurationAgg time.Duration
	RestAgg     time.Duration
	StrokeCount float64
	HeartRate   *float64
	Segment     int
}

// SegmentSummary aggregates the laps of one stroke segment.
type SegmentSummary struct {
	Segment     int
	Laps        int
	Distance    float64 // metres swum within the segment
	Style       string
	TimeAgg     time.Duration
	DurationAgg time.Duration
	RestAgg     time.Duration
	Pace        time.Duration // per 100 m
	Strokes     float64
	StrokeCount float64 // per 100 m
	HeartRate   *float64
}

// Group reduces laps into one row per bucket key, in key order.
func Group(laps []Lap, b Bucket) ([]LapGroup, error) {
	byKey := map[int][]Lap{}
	var keys []int
	for _, l := range laps {
		k, ok := l.GroupKey(b)
		if !ok {
			return nil, fmt.Errorf("%d m: %w", int(b), ErrBucketUnavailable)
		}
		if _, seen := byKey[k]; !seen {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], l)
	}
	sort.Ints(keys)

	groups := make([]LapGroup, 0, len(keys))
	for _, k := range keys {
		members := byKey[k]
		last := members[len(members)-1]
		g := LapGroup{
			Key:       k,
			Laps:      len(members),
			Distance:  last.Distance,
			Style:     styleOf(members),
			TimeAgg:   last.TimeAgg,
			HeartRate: meanHeartRate(members),
			Segment:   last.Segment,
		}
		for _, l := range members {
			g.DurationAgg += l.DurationAgg
			g.RestAgg += l.RestAgg
			g.StrokeCount += l.StrokeCount
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Segments reduces laps into one row per segment, in segment order. Laps
// outside every segment are left out.
func Segments(laps []Lap) []SegmentSummary {
	bySeg := map[int][]Lap{}
	var ids []int
	for _, l := range laps {
		if l.Segment == NoSegment {
			continue
		}
		if _, seen := bySeg[l.Segment]; !seen {
			ids = append(ids, l.Segment)
		}
		bySeg[l.Segment] = append(bySeg[l.Segment], l)
	}
	sort.Ints(ids)

	out := make([]SegmentSummary, 0, len(ids))
	for _, id := range ids {
		members := bySeg[id]
		s := SegmentSummary{
			Segment:   id,
			Laps:      len(members),
			Style:     styleOf(members),
			TimeAgg:   members[len(members)-1].TimeAgg,
			HeartRate: meanHeartRate(members),
		}
		for _, l := range members {
			s.Distance += l.DistanceSwimming
			s.DurationAgg += l.DurationAgg
			s.RestAgg += l.RestAgg
			s.Strokes += l.StrokeCount
		}
		if s.Distance > 0 {
			hundreds := s.Distance / 100
			s.Pace = time.Duration(float64(s.DurationAgg) / hundreds)
			s.StrokeCount = s.Strokes / hundreds
		}
		out = append(out, s)
	}
	return out
}

// Summary holds workout-level totals over the reconstructed laps.
type Summary struct {
	Laps       int
	Distance   float64
	Swimming   time.Duration
	Rest       time.Duration
	Strokes    float64
	HeartRate  *float64
	FastestLap time.Duration
	SlowestLap time.Duration
	Segments   int
}

// Summarize totals the lap table.
func Summarize(laps []Lap) Summary {
	s := Summary{Laps: len(laps), HeartRate: meanHeartRate(laps)}
	segs := map[int]bool{}
	for i, l := range laps {
		s.Swimming += l.Duration
		s.Rest += l.Rest
		s.Strokes += l.StrokeCount
		if i == 0 || l.Duration < s.FastestLap {
			s.FastestLap = l.Duration
		}
		if l.Duration > s.SlowestLap {
			s.SlowestLap = l.Duration
		}
		if l.Segment != NoSegment {
			segs[l.Segment] = true
		}
	}
	if len(laps) > 0 {
		s.Distance = laps[len(laps)-1].Distance
	}
	s.Segments = len(segs)
	return s
}

// styleOf returns the shared style label, or Mixed when laps differ.
func styleOf(laps []Lap) string {
	if len(laps) == 0 {
		return ""
	}
	style := laps[0].Style
	for _, l := range laps[1:] {
		if l.Style != style {
			return models.StyleMixed
		}
	}
	return style
}

// meanHeartRate averages the laps that have a heart rate.
func meanHeartRate(laps []Lap) *float64 {
	var sum float64
	var n int
	for _, l := range laps {
		if l.HeartRate != nil {
			sum += *l.HeartRate
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
