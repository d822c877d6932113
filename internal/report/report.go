// Package report prints workout tables as aligned text.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/claude/swimlaps/internal/models"
	"github.com/claude/swimlaps/internal/swim"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

// Header prints the one-line description of a workout and its totals.
func Header(w io.Writer, ws models.WorkoutSummary, s swim.Summary) error {
	_, err := fmt.Fprintf(w, "%s  %s - %s  %sm in %gm pool  %s  swim %s  rest %s  avg HR %s\n",
		ws.Date(),
		ws.Start.Format("15:04:05"),
		ws.End.Format("15:04:05"),
		meters(s.Distance),
		ws.LapLength,
		swim.FormatWorkout(ws.Elapsed()),
		swim.FormatWorkout(s.Swimming),
		swim.FormatWorkout(s.Rest),
		heartRate(s.HeartRate),
	)
	return err
}

// Laps prints one row per lap.
func Laps(w io.Writer, laps []swim.Lap) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tdistance\tstyle\ttime\tlap\tcount\tswolf\tHR\trest\tsegment\t")
	for _, l := range laps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.0f\t%.0f\t%s\t%s\t%s\t\n",
			l.Index+1,
			meters(l.Distance),
			l.Style,
			swim.FormatClock(l.TimeAgg),
			swim.FormatLap(l.DurationAgg),
			l.StrokeCount,
			l.Swolf(),
			heartRate(l.HeartRate),
			swim.FormatLap(l.RestAgg),
			segment(l.Segment),
		)
	}
	return tw.Flush()
}

// Groups prints one row per distance bucket.
func Groups(w io.Writer, groups []swim.LapGroup, b swim.Bucket) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "%dm\tdistance\tstyle\ttime\tlap\tcount\tHR\trest\t\n", int(b))
	for _, g := range groups {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.0f\t%s\t%s\t\n",
			g.Key,
			meters(g.Distance),
			g.Style,
			swim.FormatClock(g.TimeAgg),
			swim.FormatLap(g.DurationAgg),
			g.StrokeCount,
			heartRate(g.HeartRate),
			swim.FormatLap(g.RestAgg),
		)
	}
	return tw.Flush()
}

// Segments prints one row per stroke segment. Pace and count are per 100 m.
func Segments(w io.Writer, segs []swim.SegmentSummary) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "segment\tdistance\tstyle\ttime\tlap\tpace\tcount\tHR\trest\t")
	for _, s := range segs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.1f\t%s\t%s\t\n",
			s.Segment+1,
			meters(s.Distance),
			s.Style,
			swim.FormatClock(s.TimeAgg),
			swim.FormatLap(s.DurationAgg),
			swim.FormatLap(s.Pace),
			s.StrokeCount,
			heartRate(s.HeartRate),
			swim.FormatLap(s.RestAgg),
		)
	}
	return tw.Flush()
}

func meters(d float64) string { return fmt.Sprintf("%.0f", d) }

func heartRate(hr *float64) string {
	if hr == nil {
		return ""
	}
	return fmt.Sprintf("%.0f", *hr)
}

func segment(s int) string {
	if s == swim.NoSegment {
		return ""
	}
	return fmt.Sprint(s + 1)
}
