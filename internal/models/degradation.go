package models

import "time"

// Severity classifies how far below its effective threshold a node fell.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityMinor    Severity = "MINOR"
	SeverityMajor    Severity = "MAJOR"
	SeverityCritical Severity = "CRITICAL"
)

// SeverityFromDeviation maps a deviation percentage to a severity level.
// The boundaries are fixed policy: >50 CRITICAL, >25 MAJOR, >10 MINOR,
// else WARNING.
func SeverityFromDeviation(deviationPct float64) Severity {
	switch {
	case deviationPct > 50:
		return SeverityCritical
	case deviationPct > 25:
		return SeverityMajor
	case deviationPct > 10:
		return SeverityMinor
	default:
		return SeverityWarning
	}
}

// DegradationInterval is a maximal run of consecutively degraded readings on
// one node. Its position in the detector's result slice is its identity; the
// correlator and reasoning stages key off that index.
type DegradationInterval struct {
	Node             string    `json:"node"`
	StartTimestamp   time.Time `json:"start_timestamp"`
	EndTimestamp     time.Time `json:"end_timestamp"`
	MinValue         float64   `json:"min_value"`
	BaselineValue    float64   `json:"baseline_value"`
	DurationMinutes  float64   `json:"duration_minutes"`
	Severity         Severity  `json:"severity"`
	DeviationPercent float64   `json:"deviation_percent"`
	ReadingsCount    int       `json:"readings_count"`
}
