package utils

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for the --start/--end flags and cache keys.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// TruncateToDay drops the time-of-day component, keeping the calendar date.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WindowDays returns the whole-day span of [start, end] using calendar dates
// truncated to day boundaries.
func WindowDays(start, end time.Time) int {
	s := TruncateToDay(start)
	e := TruncateToDay(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours() / 24)
}
