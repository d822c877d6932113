package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ExportTime handles the Apple Health export date format: "2006-01-02 15:04:05 -0700".
// The packaged JSON export may also carry RFC 3339 strings, naive datetimes or
// Apple Core Data timestamps (seconds since 2001-01-01).
type ExportTime struct {
	time.Time
}

const (
	ExportTimeLayout = "2006-01-02 15:04:05 -0700"
	NaiveTimeLayout  = "2006-01-02 15:04:05"
	NaiveISOLayout   = "2006-01-02T15:04:05"
	ExportDateLayout = "2006-01-02"

	// AppleEpochOffset is the number of seconds between Unix epoch (1970-01-01)
	// and Apple Core Data epoch (2001-01-01).
	AppleEpochOffset int64 = 978307200
)

var exportLayouts = []string{
	ExportTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700",
	NaiveTimeLayout,
	NaiveISOLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// AppleTimestampToTime converts an Apple Core Data timestamp (seconds since 2001-01-01)
// to a Go time.Time in UTC.
func AppleTimestampToTime(appleTS float64) time.Time {
	sec := int64(appleTS)
	nsec := int64((appleTS - float64(sec)) * 1e9)
	return time.Unix(sec+AppleEpochOffset, nsec).UTC()
}

// Parse tries each known layout in turn. Naive datetimes are read as UTC.
func (t *ExportTime) Parse(s string) error {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range exportLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if ts, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = AppleTimestampToTime(ts)
		return nil
	}
	return fmt.Errorf("cannot parse export time %q: %w", s, firstErr)
}

// ParseExportTime parses an export time string into a time.Time.
func ParseExportTime(s string) (time.Time, error) {
	var t ExportTime
	if err := t.Parse(s); err != nil {
		return time.Time{}, err
	}
	return t.Time, nil
}

// DurationFromUnit converts an event duration as written in export.xml
// (a number plus a unit such as "min" or "s") into a time.Duration.
func DurationFromUnit(value float64, unit string) (time.Duration, error) {
	var scale float64
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "min":
		scale = float64(time.Minute)
	case "s", "sec":
		scale = float64(time.Second)
	case "ms":
		scale = float64(time.Millisecond)
	case "hr", "h":
		scale = float64(time.Hour)
	default:
		return 0, fmt.Errorf("unknown duration unit %q", unit)
	}
	return time.Duration(value * scale), nil
}

// ParseQuantity reads metadata quantities such as "25 m" or "1500" and returns
// the numeric part and the unit (empty when absent).
func ParseQuantity(s string) (float64, string, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, "", fmt.Errorf("empty quantity")
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", fmt.Errorf("parsing quantity %q: %w", s, err)
	}
	unit := ""
	if len(fields) > 1 {
		unit = fields[1]
	}
	return v, unit, nil
}
