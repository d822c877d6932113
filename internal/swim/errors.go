package swim

import (
	"errors"
	"fmt"
	"time"

	"github.com/claude/swimlaps/internal/models"
)

// ErrNoLapLength is returned for workouts without a positive pool length;
// distance buckets cannot be computed for them.
var ErrNoLapLength = errors.New("workout has no lap length")

// JoinError reports a lap with zero or several samples of one metric at its start.
type JoinError struct {
	Lap     int
	Start   time.Time
	Metric  string
	Matches int
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("lap %d at %s: %d %s samples match, want exactly 1",
		e.Lap, e.Start.Format(models.ExportTimeLayout), e.Matches, e.Metric)
}

// OrderingError reports a lap that ends before it starts or overlaps the next one.
type OrderingError struct {
	Lap    int
	Start  time.Time
	Field  string
	Amount time.Duration
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("lap %d at %s: negative %s %s",
		e.Lap, e.Start.Format(models.ExportTimeLayout), e.Field, e.Amount)
}

// UnmappedStyleError reports a stroke-style code outside the known set.
type UnmappedStyleError struct {
	Lap   int
	Start time.Time
	Code  models.StrokeStyle
}

func (e *UnmappedStyleError) Error() string {
	return fmt.Sprintf("lap %d at %s: unmapped stroke style %d",
		e.Lap, e.Start.Format(models.ExportTimeLayout), int(e.Code))
}
