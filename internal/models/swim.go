package models

import (
	"time"

	"github.com/google/uuid"
)

// workoutNamespace seeds name-based workout IDs for exports that carry none.
var workoutNamespace = uuid.MustParse("6f0d3c1e-4b8a-5d2f-9a61-2c7e5b1d8f40")

// Sample is one measurement record (swum distance, heart rate or stroke count).
type Sample struct {
	Start   time.Time
	End     time.Time
	Created time.Time
	Value   float64
	Unit    string
	Source  string
}

// LapEvent is an HKWorkoutEventTypeLap: one length of the pool.
type LapEvent struct {
	Start       time.Time
	End         time.Time
	StrokeStyle StrokeStyle
	SWOLF       *float64
}

// SegmentEvent is an HKWorkoutEventTypeSegment: a stretch of one stroke style.
type SegmentEvent struct {
	Start time.Time
	End   time.Time
	SWOLF *float64
}

// WorkoutSummary is one swimming workout.
type WorkoutSummary struct {
	ID            uuid.UUID
	Start         time.Time
	End           time.Time
	Duration      time.Duration
	TotalDistance float64
	DistanceUnits string
	LapLength     float64
	AvgHeartRate  *float64
	Source        string
}

// Date returns the calendar day of the workout start in its own zone.
func (w WorkoutSummary) Date() string {
	return w.Start.Format(ExportDateLayout)
}

// Elapsed returns the wall-clock span of the workout.
func (w WorkoutSummary) Elapsed() time.Duration {
	return w.End.Sub(w.Start)
}

// WorkoutID derives a stable identifier from the workout start so the same
// workout keeps its ID across exports.
func WorkoutID(start time.Time) uuid.UUID {
	return uuid.NewSHA1(workoutNamespace, []byte(start.UTC().Format(time.RFC3339Nano)))
}
