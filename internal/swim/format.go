package swim

import (
	"fmt"
	"time"
)

// FormatClock renders an elapsed time as "MM:SS" using total minutes.
// Zero renders as "".
func FormatClock(d time.Duration) string {
	if d == 0 {
		return ""
	}
	sign, m, s := split(d)
	return fmt.Sprintf("%s%02d:%02d", sign, m, s)
}

// FormatLap renders a lap or rest duration as M'SS''. Zero renders as "".
func FormatLap(d time.Duration) string {
	if d == 0 {
		return ""
	}
	sign, m, s := split(d)
	return fmt.Sprintf("%s%d'%02d''", sign, m, s)
}

// FormatWorkout renders a workout length as HH:MM:SS.
func FormatWorkout(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// split truncates to whole seconds and returns sign, minutes and seconds.
func split(d time.Duration) (string, int, int) {
	sign := ""
	if d < 0 {
		sign, d = "-", -d
	}
	d = d.Truncate(time.Second)
	return sign, int(d / time.Minute), int(d % time.Minute / time.Second)
}
