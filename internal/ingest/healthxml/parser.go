// Package healthxml extracts swimming data from an Apple Health export.xml.
package healthxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/claude/swimlaps/internal/ingest"
	"github.com/claude/swimlaps/internal/models"
)

// HealthKit identifiers read from the export.
const (
	TypeDistanceSwimming = "HKQuantityTypeIdentifierDistanceSwimming"
	TypeHeartRate        = "HKQuantityTypeIdentifierHeartRate"
	TypeStrokeCount      = "HKQuantityTypeIdentifierSwimmingStrokeCount"

	ActivitySwimming = "HKWorkoutActivityTypeSwimming"
	EventLap         = "HKWorkoutEventTypeLap"
	EventSegment     = "HKWorkoutEventTypeSegment"

	MetaLapLength   = "HKLapLength"
	MetaStrokeStyle = "HKSwimmingStrokeStyle"
	MetaSWOLF       = "HKSWOLFScore"
)

type xmlMetadata struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

type xmlStatistics struct {
	Type    string `xml:"type,attr"`
	Sum     string `xml:"sum,attr"`
	Average string `xml:"average,attr"`
	Unit    string `xml:"unit,attr"`
}

type xmlEvent struct {
	Type         string        `xml:"type,attr"`
	Date         string        `xml:"date,attr"`
	Duration     string        `xml:"duration,attr"`
	DurationUnit string        `xml:"durationUnit,attr"`
	Metadata     []xmlMetadata `xml:"MetadataEntry"`
}

type xmlWorkout struct {
	ActivityType      string          `xml:"workoutActivityType,attr"`
	Duration          string          `xml:"duration,attr"`
	DurationUnit      string          `xml:"durationUnit,attr"`
	TotalDistance     string          `xml:"totalDistance,attr"`
	TotalDistanceUnit string          `xml:"totalDistanceUnit,attr"`
	SourceName        string          `xml:"sourceName,attr"`
	StartDate         string          `xml:"startDate,attr"`
	EndDate           string          `xml:"endDate,attr"`
	Metadata          []xmlMetadata   `xml:"MetadataEntry"`
	Statistics        []xmlStatistics `xml:"WorkoutStatistics"`
	Events            []xmlEvent      `xml:"WorkoutEvent"`
}

// parser accumulates tables and per-table row positions for error reporting.
type parser struct {
	tables *ingest.Tables
	rows   map[string]int
}

// ParseFile opens and parses an export.xml file.
func ParseFile(path string) (*ingest.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse streams an export.xml document. Only swimming workouts and the three
// swimming-related record types are kept; everything else is skipped.
func Parse(r io.Reader) (*ingest.Tables, error) {
	p := &parser{tables: ingest.NewTables(), rows: map[string]int{}}
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading export.xml: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "Record":
			if err := p.record(se); err != nil {
				return nil, err
			}
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("skipping record children: %w", err)
			}
		case "Workout":
			if attr(se, "workoutActivityType") != ActivitySwimming {
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("skipping workout: %w", err)
				}
				continue
			}
			var w xmlWorkout
			if err := dec.DecodeElement(&w, &se); err != nil {
				return nil, fmt.Errorf("decoding swimming workout: %w", err)
			}
			if err := p.workout(w); err != nil {
				return nil, err
			}
		}
	}

	p.tables.Sort()
	return p.tables, nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (p *parser) next(table string) int {
	row := p.rows[table]
	p.rows[table] = row + 1
	return row
}

func (p *parser) record(se xml.StartElement) error {
	var table string
	var idx = p.tables.Distance
	switch attr(se, "type") {
	case TypeDistanceSwimming:
		table = ingest.TableDistance
	case TypeHeartRate:
		table, idx = ingest.TableHeartRate, p.tables.HeartRate
	case TypeStrokeCount:
		table, idx = ingest.TableStrokeCount, p.tables.StrokeCount
	default:
		return nil
	}
	row := p.next(table)

	start, err := requireTime(table, row, "startDate", attr(se, "startDate"))
	if err != nil {
		return err
	}
	end, err := requireTime(table, row, "endDate", attr(se, "endDate"))
	if err != nil {
		return err
	}
	value, err := requireFloat(table, row, "value", attr(se, "value"))
	if err != nil {
		return err
	}
	s := models.Sample{
		Start:  start,
		End:    end,
		Value:  value,
		Unit:   attr(se, "unit"),
		Source: attr(se, "sourceName"),
	}
	if c := attr(se, "creationDate"); c != "" {
		created, err := requireTime(table, row, "creationDate", c)
		if err != nil {
			return err
		}
		s.Created = created
	}
	idx.Insert(s)
	return nil
}

func (p *parser) workout(w xmlWorkout) error {
	table := ingest.TableWorkoutSummary
	row := p.next(table)

	start, err := requireTime(table, row, "startDate", w.StartDate)
	if err != nil {
		return err
	}
	end, err := requireTime(table, row, "endDate", w.EndDate)
	if err != nil {
		return err
	}
	summary := models.WorkoutSummary{
		ID:       models.WorkoutID(start),
		Start:    start,
		End:      end,
		Duration: end.Sub(start),
		Source:   w.SourceName,
	}
	if w.Duration != "" {
		v, err := requireFloat(table, row, "duration", w.Duration)
		if err != nil {
			return err
		}
		d, err := models.DurationFromUnit(v, w.DurationUnit)
		if err != nil {
			return &ingest.ParseError{Table: table, Row: row, Field: "durationUnit", Value: w.DurationUnit, Err: err}
		}
		summary.Duration = d
	}

	for _, st := range w.Statistics {
		switch st.Type {
		case TypeDistanceSwimming:
			v, err := requireFloat(table, row, "DistanceSwimming_sum", st.Sum)
			if err != nil {
				return err
			}
			summary.TotalDistance = v
			summary.DistanceUnits = st.Unit
		case TypeHeartRate:
			if st.Average == "" {
				continue
			}
			v, err := requireFloat(table, row, "HeartRate_average", st.Average)
			if err != nil {
				return err
			}
			summary.AvgHeartRate = &v
		}
	}
	if summary.DistanceUnits == "" && w.TotalDistance != "" {
		v, err := requireFloat(table, row, "totalDistance", w.TotalDistance)
		if err != nil {
			return err
		}
		summary.TotalDistance = v
		summary.DistanceUnits = w.TotalDistanceUnit
	}

	for _, m := range w.Metadata {
		if m.Key != MetaLapLength {
			continue
		}
		v, _, err := models.ParseQuantity(m.Value)
		if err != nil {
			return &ingest.ParseError{Table: table, Row: row, Field: MetaLapLength, Value: m.Value, Err: err}
		}
		summary.LapLength = v
	}
	p.tables.Workouts = append(p.tables.Workouts, summary)

	for _, ev := range w.Events {
		switch ev.Type {
		case EventLap:
			if err := p.lap(ev); err != nil {
				return err
			}
		case EventSegment:
			if err := p.segment(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) eventSpan(table string, row int, ev xmlEvent) (time.Time, time.Time, error) {
	start, err := requireTime(table, row, "date", ev.Date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	v, err := requireFloat(table, row, "duration", ev.Duration)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	d, err := models.DurationFromUnit(v, ev.DurationUnit)
	if err != nil {
		return time.Time{}, time.Time{}, &ingest.ParseError{Table: table, Row: row, Field: "durationUnit", Value: ev.DurationUnit, Err: err}
	}
	return start, start.Add(d), nil
}

func (p *parser) lap(ev xmlEvent) error {
	table := ingest.TableLaps
	row := p.next(table)
	start, end, err := p.eventSpan(table, row, ev)
	if err != nil {
		return err
	}
	lap := models.LapEvent{Start: start, End: end}

	styleSeen := false
	for _, m := range ev.Metadata {
		switch m.Key {
		case MetaStrokeStyle:
			code, err := strconv.Atoi(strings.TrimSpace(m.Value))
			if err != nil {
				return &ingest.ParseError{Table: table, Row: row, Field: MetaStrokeStyle, Value: m.Value, Err: err}
			}
			lap.StrokeStyle = models.StrokeStyle(code)
			styleSeen = true
		case MetaSWOLF:
			v, err := swolf(table, row, m.Value)
			if err != nil {
				return err
			}
			lap.SWOLF = v
		}
	}
	if !styleSeen {
		return &ingest.ParseError{Table: table, Row: row, Field: MetaStrokeStyle, Err: ingest.ErrMissing}
	}
	p.tables.Laps = append(p.tables.Laps, lap)
	return nil
}

func (p *parser) segment(ev xmlEvent) error {
	table := ingest.TableSegments
	row := p.next(table)
	start, end, err := p.eventSpan(table, row, ev)
	if err != nil {
		return err
	}
	seg := models.SegmentEvent{Start: start, End: end}
	for _, m := range ev.Metadata {
		if m.Key == MetaSWOLF {
			v, err := swolf(table, row, m.Value)
			if err != nil {
				return err
			}
			seg.SWOLF = v
		}
	}
	p.tables.Segments = append(p.tables.Segments, seg)
	return nil
}

func swolf(table string, row int, s string) (*float64, error) {
	v, _, err := models.ParseQuantity(s)
	if err != nil {
		return nil, &ingest.ParseError{Table: table, Row: row, Field: MetaSWOLF, Value: s, Err: err}
	}
	return &v, nil
}

func requireTime(table string, row int, field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &ingest.ParseError{Table: table, Row: row, Field: field, Err: ingest.ErrMissing}
	}
	t, err := models.ParseExportTime(s)
	if err != nil {
		return time.Time{}, &ingest.ParseError{Table: table, Row: row, Field: field, Value: s, Err: err}
	}
	return t, nil
}

func requireFloat(table string, row int, field, s string) (float64, error) {
	if s == "" {
		return 0, &ingest.ParseError{Table: table, Row: row, Field: field, Err: ingest.ErrMissing}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &ingest.ParseError{Table: table, Row: row, Field: field, Value: s, Err: err}
	}
	return v, nil
}
