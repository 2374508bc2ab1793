// Package timeparse reads the date and time formats browsers send.
package timeparse

import "time"

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// Parse accepts RFC 3339, zone-less ISO date-times (local zone) and plain
// dates (local midnight). ok is false for empty or unrecognized input.
func Parse(s string) (t time.Time, ok bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseEnd is Parse, except that a plain date means the last instant of
// that day.
func ParseEnd(s string) (time.Time, bool) {
	if d, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return d.AddDate(0, 0, 1).Add(-time.Second), true
	}
	return Parse(s)
}

// Date parses a plain calendar date, or the date part of a date-time.
func Date(s string) (time.Time, bool) {
	t, ok := Parse(s)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local), true
}
