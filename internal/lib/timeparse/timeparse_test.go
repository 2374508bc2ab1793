package timeparse

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-03-04T10:15:00Z", time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC), true},
		{"2025-03-04T10:15:00", time.Date(2025, 3, 4, 10, 15, 0, 0, time.Local), true},
		{"2025-03-04T10:15", time.Date(2025, 3, 4, 10, 15, 0, 0, time.Local), true},
		{"2025-03-04", time.Date(2025, 3, 4, 0, 0, 0, 0, time.Local), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseEnd(t *testing.T) {
	got, ok := ParseEnd("2025-03-04")
	want := time.Date(2025, 3, 4, 23, 59, 59, 0, time.Local)
	if !ok || !got.Equal(want) {
		t.Errorf("ParseEnd(date) = %v, want %v", got, want)
	}

	got, ok = ParseEnd("2025-03-04T12:00:00")
	want = time.Date(2025, 3, 4, 12, 0, 0, 0, time.Local)
	if !ok || !got.Equal(want) {
		t.Errorf("ParseEnd(datetime) = %v, want %v", got, want)
	}
}

func TestDate(t *testing.T) {
	got, ok := Date("2025-03-04T18:30:00")
	want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.Local)
	if !ok || !got.Equal(want) {
		t.Errorf("Date = %v, want %v", got, want)
	}
}
