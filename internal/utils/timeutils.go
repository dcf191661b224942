package utils

import (
	"fmt"
	"strings"
	"time"
)

// readingLayouts are tried in order when parsing KPI timestamps.
var readingLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"01/02/2006",
}

// ParseReadingTimestamp parses a KPI timestamp in any of the accepted layouts.
func ParseReadingTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range readingLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time value %q", value)
}

// ParseEventTimestamp parses fault-management timestamps. The feed's native
// format is "2025-9-10,14:18:14.0,+3:0": date, time with fractional seconds,
// and an offset fragment that is dropped (the batch compares instants from
// one feed against each other, matching the original behaviour).
func ParseEventTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	if parts := strings.Split(value, ","); len(parts) >= 2 {
		datePart := strings.TrimSpace(parts[0])
		timePart := strings.TrimSpace(parts[1])
		if idx := strings.Index(timePart, "."); idx >= 0 {
			timePart = timePart[:idx]
		}
		if t, err := time.Parse("2006-1-2 15:4:5", datePart+" "+timePart); err == nil {
			return t, nil
		}
	}

	return ParseReadingTimestamp(value)
}

// DurationMinutes converts a pair of timestamps into minute duration.
func DurationMinutes(start, end time.Time) float64 {
	if end.Before(start) {
		start, end = end, start
	}
	return end.Sub(start).Minutes()
}
