// Package swimjson extracts swimming data from the packaged JSON export
// (one document with six arrays of flat records).
package swimjson

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/claude/swimlaps/internal/ingest"
	"github.com/claude/swimlaps/internal/models"
)

type record map[string]any

// document mirrors the top-level keys. Every array is required; a missing key
// and an empty array are told apart by the nil check.
type document struct {
	WorkoutSummary      []record `json:"workoutSummary"`
	WorkoutEventSegment []record `json:"workoutEventSegment"`
	WorkoutEventLap     []record `json:"workoutEventLap"`
	DistanceSwimming    []record `json:"distanceSwimming"`
	HeartRate           []record `json:"heartRate"`
	SwimmingStrokeCount []record `json:"swimmingStrokeCount"`
}

// Parse decodes a packaged JSON export. Fields outside the fixed schema are ignored.
func Parse(r io.Reader) (*ingest.Tables, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding export JSON: %w", err)
	}

	for _, tbl := range []struct {
		name string
		rows []record
	}{
		{ingest.TableWorkoutSummary, doc.WorkoutSummary},
		{ingest.TableSegments, doc.WorkoutEventSegment},
		{ingest.TableLaps, doc.WorkoutEventLap},
		{ingest.TableDistance, doc.DistanceSwimming},
		{ingest.TableHeartRate, doc.HeartRate},
		{ingest.TableStrokeCount, doc.SwimmingStrokeCount},
	} {
		if tbl.rows == nil {
			return nil, &ingest.ParseError{Table: tbl.name, Row: -1, Err: ingest.ErrMissing}
		}
	}

	t := ingest.NewTables()
	for i, rec := range doc.WorkoutSummary {
		w, err := workout(rec, i)
		if err != nil {
			return nil, err
		}
		t.Workouts = append(t.Workouts, w)
	}
	for i, rec := range doc.WorkoutEventSegment {
		s, err := segment(rec, i)
		if err != nil {
			return nil, err
		}
		t.Segments = append(t.Segments, s)
	}
	for i, rec := range doc.WorkoutEventLap {
		l, err := lap(rec, i)
		if err != nil {
			return nil, err
		}
		t.Laps = append(t.Laps, l)
	}
	for _, src := range []struct {
		name string
		rows []record
		into func(models.Sample)
	}{
		{ingest.TableDistance, doc.DistanceSwimming, t.Distance.Insert},
		{ingest.TableHeartRate, doc.HeartRate, t.HeartRate.Insert},
		{ingest.TableStrokeCount, doc.SwimmingStrokeCount, t.StrokeCount.Insert},
	} {
		for i, rec := range src.rows {
			s, err := sample(rec, src.name, i)
			if err != nil {
				return nil, err
			}
			src.into(s)
		}
	}

	t.Sort()
	return t, nil
}

func workout(rec record, row int) (models.WorkoutSummary, error) {
	const table = ingest.TableWorkoutSummary
	start, err := rec.time(table, row, "startDate")
	if err != nil {
		return models.WorkoutSummary{}, err
	}
	end, err := rec.time(table, row, "endDate")
	if err != nil {
		return models.WorkoutSummary{}, err
	}
	w := models.WorkoutSummary{
		ID:       models.WorkoutID(start),
		Start:    start,
		End:      end,
		Duration: end.Sub(start),
		Source:   rec.str("sourceName"),
	}

	for _, key := range []string{"uuid", "id"} {
		if raw := rec.str(key); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return w, &ingest.ParseError{Table: table, Row: row, Field: key, Value: raw, Err: err}
			}
			w.ID = id
			break
		}
	}
	if _, ok := rec["DistanceSwimming_sum"]; ok {
		if w.TotalDistance, err = rec.float(table, row, "DistanceSwimming_sum"); err != nil {
			return w, err
		}
		w.DistanceUnits = rec.str("DistanceSwimming_unit")
	}
	if _, ok := rec["HeartRate_average"]; ok {
		v, err := rec.float(table, row, "HeartRate_average")
		if err != nil {
			return w, err
		}
		w.AvgHeartRate = &v
	}
	if _, ok := rec["HKLapLength"]; ok {
		if w.LapLength, err = rec.float(table, row, "HKLapLength"); err != nil {
			return w, err
		}
	}
	return w, nil
}

func segment(rec record, row int) (models.SegmentEvent, error) {
	const table = ingest.TableSegments
	start, end, err := rec.span(table, row)
	if err != nil {
		return models.SegmentEvent{}, err
	}
	s := models.SegmentEvent{Start: start, End: end}
	if s.SWOLF, err = rec.optFloat(table, row, "HKSWOLFScore"); err != nil {
		return s, err
	}
	return s, nil
}

func lap(rec record, row int) (models.LapEvent, error) {
	const table = ingest.TableLaps
	start, end, err := rec.span(table, row)
	if err != nil {
		return models.LapEvent{}, err
	}
	l := models.LapEvent{Start: start, End: end}
	code, err := rec.float(table, row, "HKSwimmingStrokeStyle")
	if err != nil {
		return l, err
	}
	if code != math.Trunc(code) {
		return l, &ingest.ParseError{Table: table, Row: row, Field: "HKSwimmingStrokeStyle",
			Value: cast.ToString(rec["HKSwimmingStrokeStyle"]), Err: fmt.Errorf("not an integer code")}
	}
	l.StrokeStyle = models.StrokeStyle(int(code))
	if l.SWOLF, err = rec.optFloat(table, row, "HKSWOLFScore"); err != nil {
		return l, err
	}
	return l, nil
}

func sample(rec record, table string, row int) (models.Sample, error) {
	start, err := rec.time(table, row, "startDate")
	if err != nil {
		return models.Sample{}, err
	}
	end, err := rec.time(table, row, "endDate")
	if err != nil {
		return models.Sample{}, err
	}
	value, err := rec.float(table, row, "value")
	if err != nil {
		return models.Sample{}, err
	}
	s := models.Sample{
		Start:  start,
		End:    end,
		Value:  value,
		Unit:   rec.str("unit"),
		Source: rec.str("sourceName"),
	}
	if _, ok := rec["creationDate"]; ok {
		if s.Created, err = rec.time(table, row, "creationDate"); err != nil {
			return s, err
		}
	}
	return s, nil
}

// span reads an event's start and end.
func (r record) span(table string, row int) (time.Time, time.Time, error) {
	start, err := r.time(table, row, "start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := r.time(table, row, "end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (r record) str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

func (r record) time(table string, row int, key string) (time.Time, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return time.Time{}, &ingest.ParseError{Table: table, Row: row, Field: key, Err: ingest.ErrMissing}
	}
	if s, ok := v.(string); ok {
		t, err := models.ParseExportTime(s)
		if err != nil {
			return time.Time{}, &ingest.ParseError{Table: table, Row: row, Field: key, Value: s, Err: err}
		}
		return t, nil
	}
	ts, err := cast.ToFloat64E(v)
	if err != nil {
		return time.Time{}, &ingest.ParseError{Table: table, Row: row, Field: key, Value: fmt.Sprint(v), Err: err}
	}
	return models.AppleTimestampToTime(ts), nil
}

// float accepts JSON numbers, numeric strings and quantities like "25 m".
func (r record) float(table string, row int, key string) (float64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, &ingest.ParseError{Table: table, Row: row, Field: key, Err: ingest.ErrMissing}
	}
	if s, ok := v.(string); ok {
		f, _, err := models.ParseQuantity(strings.TrimSpace(s))
		if err != nil {
			return 0, &ingest.ParseError{Table: table, Row: row, Field: key, Value: s, Err: err}
		}
		return f, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, &ingest.ParseError{Table: table, Row: row, Field: key, Value: fmt.Sprint(v), Err: err}
	}
	return f, nil
}

func (r record) optFloat(table string, row int, key string) (*float64, error) {
	if v, ok := r[key]; !ok || v == nil {
		return nil, nil
	}
	f, err := r.float(table, row, key)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
