package models

import (
	"testing"
	"time"
)

// TestParseExportTimeFullDatetime verifies parsing the export.xml datetime format.
// Every Record and Workout attribute in export.xml uses this layout.
func TestParseExportTimeFullDatetime(t *testing.T) {
	got, err := ParseExportTime("2024-02-06 14:30:00 -0800")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 2, 6, 14, 30, 0, 0, time.FixedZone("", -8*3600))
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestParseExportTimeAlternateLayouts verifies the layouts seen in packaged JSON exports.
func TestParseExportTimeAlternateLayouts(t *testing.T) {
	want := time.Date(2024, 2, 6, 14, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-02-06T14:30:00Z",
		"2024-02-06 14:30:00",
		"2024-02-06T14:30:00",
		"2024-02-06 14:30:00 +0000",
	} {
		got, err := ParseExportTime(s)
		if err != nil {
			t.Errorf("ParseExportTime(%q): %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseExportTime(%q) = %v, want %v", s, got, want)
		}
	}
}

// TestParseExportTimeAppleTimestamp verifies numeric strings are read as Apple Core Data seconds.
func TestParseExportTimeAppleTimestamp(t *testing.T) {
	got, err := ParseExportTime("0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestParseExportTimeInvalid verifies that an invalid date string returns an error.
func TestParseExportTimeInvalid(t *testing.T) {
	if _, err := ParseExportTime("not-a-date"); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

// TestDurationFromUnit verifies WorkoutEvent durations, which export.xml writes in minutes.
func TestDurationFromUnit(t *testing.T) {
	cases := []struct {
		value float64
		unit  string
		want  time.Duration
	}{
		{0.5, "min", 30 * time.Second},
		{0.5, "", 30 * time.Second},
		{42, "s", 42 * time.Second},
		{1, "hr", time.Hour},
	}
	for _, tc := range cases {
		got, err := DurationFromUnit(tc.value, tc.unit)
		if err != nil {
			t.Errorf("DurationFromUnit(%v, %q): %v", tc.value, tc.unit, err)
			continue
		}
		if got != tc.want {
			t.Errorf("DurationFromUnit(%v, %q) = %v, want %v", tc.value, tc.unit, got, tc.want)
		}
	}
	if _, err := DurationFromUnit(1, "fortnight"); err == nil {
		t.Error("expected error for unknown unit")
	}
}

// TestParseQuantity verifies metadata values like HKLapLength "25 m".
func TestParseQuantity(t *testing.T) {
	v, unit, err := ParseQuantity("25 m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 25 || unit != "m" {
		t.Errorf("got (%v, %q), want (25, \"m\")", v, unit)
	}
	v, unit, err = ParseQuantity("50")
	if err != nil || v != 50 || unit != "" {
		t.Errorf("got (%v, %q, %v), want (50, \"\", nil)", v, unit, err)
	}
	if _, _, err := ParseQuantity("  "); err == nil {
		t.Error("expected error for empty quantity")
	}
}
