package detector

import (
	"math"
	"testing"
	"time"

	"github.com/netsentry/kpi-rca/internal/config"
	"github.com/netsentry/kpi-rca/internal/models"
)

func hourlySeries(node string, start time.Time, values []float64) []models.Reading {
	readings := make([]models.Reading, 0, len(values))
	for i, v := range values {
		readings = append(readings, models.Reading{
			Node:      node,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     v,
		})
	}
	return readings
}

func defaultDetection() config.DetectionConfig {
	return config.DetectionConfig{
		MedianPercentage:   90,
		StaticThreshold:    95.0,
		MinDurationMinutes: 5,
	}
}

func TestComputeBaselineEffectiveIsMin(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	readings := hourlySeries("A", start, []float64{98, 98, 98, 98})

	baseline, ok := ComputeBaseline("A", readings, models.ThresholdConfig{MedianPercentage: 90, StaticThreshold: 95})
	if !ok {
		t.Fatalf("expected baseline for non-empty readings")
	}
	if baseline.Median != 98 {
		t.Fatalf("median = %f, want 98", baseline.Median)
	}
	if math.Abs(baseline.Dynamic-88.2) > 1e-9 {
		t.Fatalf("dynamic = %f, want 88.2", baseline.Dynamic)
	}
	if baseline.Effective != math.Min(baseline.Dynamic, baseline.Static) {
		t.Fatalf("effective = %f, want min(dynamic, static)", baseline.Effective)
	}

	// On a low-median node the static cap is the larger bar, so the dynamic
	// threshold wins the min.
	low := hourlySeries("B", start, []float64{120, 120, 120})
	baseline, _ = ComputeBaseline("B", low, models.ThresholdConfig{MedianPercentage: 90, StaticThreshold: 95})
	if baseline.Effective != 95 {
		t.Fatalf("effective = %f, want static cap 95", baseline.Effective)
	}
}

func TestComputeBaselineEmptyReadings(t *testing.T) {
	if _, ok := ComputeBaseline("A", nil, models.ThresholdConfig{MedianPercentage: 90, StaticThreshold: 95}); ok {
		t.Fatalf("expected no baseline for empty readings")
	}
}

func TestDetectExampleScenario(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	values := []float64{98, 98, 98, 70, 65, 80, 98, 98, 98, 98}
	readings := hourlySeries("A", start, values)

	d := New(nil)
	intervals := d.Detect(readings, defaultDetection())

	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	interval := intervals[0]
	if interval.Node != "A" {
		t.Fatalf("node = %s", interval.Node)
	}
	if interval.MinValue != 65 {
		t.Fatalf("min value = %f, want 65", interval.MinValue)
	}
	if interval.ReadingsCount != 3 {
		t.Fatalf("readings count = %d, want 3", interval.ReadingsCount)
	}
	if !interval.StartTimestamp.Equal(start.Add(3 * time.Hour)) {
		t.Fatalf("start = %v", interval.StartTimestamp)
	}
	if !interval.EndTimestamp.Equal(start.Add(5 * time.Hour)) {
		t.Fatalf("end = %v", interval.EndTimestamp)
	}
	// Two hours first-to-last plus the median hourly gap for the final sample.
	if interval.DurationMinutes != 180 {
		t.Fatalf("duration = %f, want 180", interval.DurationMinutes)
	}
	if math.Abs(interval.DeviationPercent-26.303854875283445) > 1e-9 {
		t.Fatalf("deviation = %f, want about 26.3", interval.DeviationPercent)
	}
	if interval.Severity != models.SeverityMajor {
		t.Fatalf("severity = %s, want MAJOR", interval.Severity)
	}

	baseline := d.Baselines()["A"]
	if interval.BaselineValue != baseline.Effective {
		t.Fatalf("baseline value %f does not equal effective threshold %f", interval.BaselineValue, baseline.Effective)
	}
}

func TestDetectRunsAreMaximal(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	values := []float64{98, 70, 65, 98, 60, 98}
	readings := hourlySeries("A", start, values)

	d := New(nil)
	intervals := d.Detect(readings, defaultDetection())
	if len(intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(intervals))
	}

	baseline := d.Baselines()["A"]
	degraded := func(v float64) bool {
		return v < baseline.Dynamic && v < baseline.Static
	}
	for _, interval := range intervals {
		startIdx := int(interval.StartTimestamp.Sub(start).Hours())
		endIdx := int(interval.EndTimestamp.Sub(start).Hours())
		if startIdx > 0 && degraded(values[startIdx-1]) {
			t.Fatalf("reading before interval start is degraded; run not maximal")
		}
		if endIdx < len(values)-1 && degraded(values[endIdx+1]) {
			t.Fatalf("reading after interval end is degraded; run not maximal")
		}
	}
}

func TestDetectMinimumDurationFilter(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	// Single degraded reading followed 3 minutes later by a healthy one:
	// the run covers only that 3 minute gap and is discarded.
	readings := []models.Reading{
		{Node: "A", Timestamp: start, Value: 98},
		{Node: "A", Timestamp: start.Add(time.Hour), Value: 50},
		{Node: "A", Timestamp: start.Add(time.Hour + 3*time.Minute), Value: 98},
		{Node: "A", Timestamp: start.Add(2 * time.Hour), Value: 98},
	}

	d := New(nil)
	intervals := d.Detect(readings, defaultDetection())
	if len(intervals) != 0 {
		t.Fatalf("expected short run to be discarded, got %d intervals", len(intervals))
	}

	for _, interval := range intervals {
		if interval.DurationMinutes < 5 {
			t.Fatalf("interval below minimum duration emitted: %f", interval.DurationMinutes)
		}
	}
}

func TestDetectTrailingSingleReadingFallback(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	// The node's last reading is degraded; with nothing after it the run is
	// assumed to cover one sampling period.
	readings := hourlySeries("A", start, []float64{98, 98, 98, 50})

	d := New(nil)
	intervals := d.Detect(readings, defaultDetection())
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].DurationMinutes != 60 {
		t.Fatalf("duration = %f, want one-period fallback 60", intervals[0].DurationMinutes)
	}
	if intervals[0].ReadingsCount != 1 {
		t.Fatalf("readings count = %d, want 1", intervals[0].ReadingsCount)
	}
}

func TestDetectZeroEffectiveThresholdClampsDeviation(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	readings := hourlySeries("A", start, []float64{0, 0, -5, -8, 0, 0})

	d := New(nil)
	intervals := d.Detect(readings, defaultDetection())
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].DeviationPercent != 0 {
		t.Fatalf("deviation = %f, want clamp to 0", intervals[0].DeviationPercent)
	}
	if intervals[0].Severity != models.SeverityWarning {
		t.Fatalf("severity = %s, want WARNING", intervals[0].Severity)
	}
}

func TestDetectPerNodeOverride(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	cfg := defaultDetection()
	cfg.NodeOverrides = map[string]models.ThresholdConfig{
		"B": {MedianPercentage: 50},
	}

	readings := append(
		hourlySeries("A", start, []float64{98, 98, 70, 98}),
		hourlySeries("B", start, []float64{98, 98, 70, 98})...,
	)

	d := New(nil)
	intervals := d.Detect(readings, cfg)

	// Node A flags 70 against its 88.2 dynamic bar; node B's override drops
	// the bar to 49, so the same value stays healthy there.
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].Node != "A" {
		t.Fatalf("interval on node %s, want A", intervals[0].Node)
	}

	if got := d.Baselines()["B"].Dynamic; got != 49 {
		t.Fatalf("override dynamic threshold = %f, want 49", got)
	}
	if got := d.Baselines()["B"].Static; got != 95 {
		t.Fatalf("override should fall back to default static threshold, got %f", got)
	}
}

func TestDetectResultOrdering(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	readings := append(
		hourlySeries("B", start, []float64{98, 50, 98, 98, 50, 98}),
		hourlySeries("A", start.Add(2*time.Hour), []float64{98, 50, 98})...,
	)

	d := New(nil)
	intervals := d.Detect(readings, defaultDetection())
	if len(intervals) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(intervals))
	}
	for i := 1; i < len(intervals); i++ {
		prev, cur := intervals[i-1], intervals[i]
		if prev.Node > cur.Node {
			t.Fatalf("intervals not sorted by node: %s before %s", prev.Node, cur.Node)
		}
		if prev.Node == cur.Node && cur.StartTimestamp.Before(prev.StartTimestamp) {
			t.Fatalf("intervals not sorted by start within node %s", cur.Node)
		}
	}
}

func TestSeverityBoundaries(t *testing.T) {
	cases := []struct {
		deviation float64
		want      models.Severity
	}{
		{60, models.SeverityCritical},
		{50.0001, models.SeverityCritical},
		{50, models.SeverityMajor},
		{25.0001, models.SeverityMajor},
		{25, models.SeverityMinor},
		{10.0001, models.SeverityMinor},
		{10, models.SeverityWarning},
		{0, models.SeverityWarning},
	}
	for _, tc := range cases {
		if got := models.SeverityFromDeviation(tc.deviation); got != tc.want {
			t.Fatalf("severity(%f) = %s, want %s", tc.deviation, got, tc.want)
		}
	}
}

func TestNodeStatistics(t *testing.T) {
	start := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	readings := hourlySeries("A", start, []float64{90, 100, 95})

	d := New(nil)
	d.Detect(readings, defaultDetection())

	stats, ok := d.NodeStatistics()["A"]
	if !ok {
		t.Fatalf("expected statistics for node A")
	}
	if stats.Count != 3 || stats.Min != 90 || stats.Max != 100 || stats.Median != 95 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
	if math.Abs(stats.Mean-95) > 1e-9 {
		t.Fatalf("mean = %f, want 95", stats.Mean)
	}
}
