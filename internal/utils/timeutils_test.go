package utils

import (
	"testing"
	"time"
)

func TestParseReadingTimestampLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-09-10T13:00:00Z", time.Date(2025, 9, 10, 13, 0, 0, 0, time.UTC)},
		{"2025-09-10 13:00:00", time.Date(2025, 9, 10, 13, 0, 0, 0, time.UTC)},
		{"2025-09-10 13:00", time.Date(2025, 9, 10, 13, 0, 0, 0, time.UTC)},
		{"2025-09-10", time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)},
		{" 2025-09-10 ", time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseReadingTimestamp(tc.in)
		if err != nil {
			t.Fatalf("ParseReadingTimestamp(%q): %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseReadingTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseReadingTimestamp(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
	if _, err := ParseReadingTimestamp("not a date"); err == nil {
		t.Fatalf("expected error for unparsable value")
	}
}

func TestParseEventTimestampFeedFormat(t *testing.T) {
	got, err := ParseEventTimestamp("2025-9-10,14:18:14.0,+3:0")
	if err != nil {
		t.Fatalf("ParseEventTimestamp: %v", err)
	}
	want := time.Date(2025, 9, 10, 14, 18, 14, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", got, want)
	}

	// Non-padded fields and missing fraction are both fine.
	got, err = ParseEventTimestamp("2025-12-3,9:5:7,+2:0")
	if err != nil {
		t.Fatalf("ParseEventTimestamp: %v", err)
	}
	want = time.Date(2025, 12, 3, 9, 5, 7, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", got, want)
	}

	// Falls back to the reading layouts for plain timestamps.
	got, err = ParseEventTimestamp("2025-09-10 14:18:14")
	if err != nil {
		t.Fatalf("ParseEventTimestamp fallback: %v", err)
	}
	if got.Hour() != 14 {
		t.Fatalf("fallback timestamp = %v", got)
	}
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	if got := DurationMinutes(start, end); got != 90 {
		t.Fatalf("duration = %f, want 90", got)
	}
	// Order-insensitive.
	if got := DurationMinutes(end, start); got != 90 {
		t.Fatalf("reversed duration = %f, want 90", got)
	}
}
