// Package detector turns per-node KPI series into discrete degradation
// intervals with severity classification.
package detector

import (
	"log/slog"
	"math"
	"sort"

	"github.com/netsentry/kpi-rca/internal/config"
	"github.com/netsentry/kpi-rca/internal/models"
)

// fallbackPeriodMinutes approximates one sampling period when a node's
// cadence cannot be derived from its own series (hourly feeds in practice).
const fallbackPeriodMinutes = 60.0

// Detector computes per-node baselines and extracts degradation intervals.
// Baselines and node statistics from the last Detect call are kept as
// queryable diagnostics; they are not needed for the interval list itself.
type Detector struct {
	logger    *slog.Logger
	baselines map[string]models.NodeBaseline
	stats     map[string]models.NodeStatistics
}

// New constructs a Detector.
func New(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger}
}

// ComputeBaseline derives a node's baseline from its full reading set.
// The dynamic threshold is median * medianPercentage / 100; the effective
// threshold is capped by the static threshold so that a relative bar cannot
// drift above the hard ceiling on well-performing nodes. Returns false when
// the node has no readings.
func ComputeBaseline(node string, readings []models.Reading, cfg models.ThresholdConfig) (models.NodeBaseline, bool) {
	if len(readings) == 0 {
		return models.NodeBaseline{}, false
	}

	values := make([]float64, 0, len(readings))
	for _, r := range readings {
		values = append(values, r.Value)
	}

	med := median(values)
	dynamic := med * cfg.MedianPercentage / 100
	effective := math.Min(dynamic, cfg.StaticThreshold)

	return models.NodeBaseline{
		Node:      node,
		Median:    med,
		Dynamic:   dynamic,
		Static:    cfg.StaticThreshold,
		Effective: effective,
	}, true
}

// Detect extracts degradation intervals from the batch. A reading is degraded
// only when it falls below both the node's dynamic and static thresholds;
// maximal runs of degraded readings become intervals, filtered by the minimum
// duration. The result is stable-sorted by (node, start timestamp).
func (d *Detector) Detect(readings []models.Reading, cfg config.DetectionConfig) []models.DegradationInterval {
	byNode := groupByNode(readings)

	nodes := make([]string, 0, len(byNode))
	for node := range byNode {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	d.baselines = make(map[string]models.NodeBaseline, len(nodes))
	d.stats = make(map[string]models.NodeStatistics, len(nodes))

	intervals := make([]models.DegradationInterval, 0)
	for _, node := range nodes {
		series := byNode[node]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})

		baseline, ok := ComputeBaseline(node, series, cfg.ForNode(node))
		if !ok {
			// Nodes with no valid readings are skipped, not an error.
			continue
		}
		d.baselines[node] = baseline
		d.stats[node] = nodeStatistics(node, series)

		intervals = append(intervals, d.detectNode(series, baseline, cfg.MinDurationMinutes)...)
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		if intervals[i].Node != intervals[j].Node {
			return intervals[i].Node < intervals[j].Node
		}
		return intervals[i].StartTimestamp.Before(intervals[j].StartTimestamp)
	})

	return intervals
}

// Baselines returns the per-node baselines from the last Detect call.
func (d *Detector) Baselines() map[string]models.NodeBaseline {
	return d.baselines
}

// NodeStatistics returns per-node value distributions from the last Detect call.
func (d *Detector) NodeStatistics() map[string]models.NodeStatistics {
	return d.stats
}

type run struct {
	start    int
	end      int // inclusive
	degraded bool
}

func (d *Detector) detectNode(series []models.Reading, baseline models.NodeBaseline, minDuration float64) []models.DegradationInterval {
	degraded := func(v float64) bool {
		return v < baseline.Dynamic && v < baseline.Static
	}

	medGap := medianGapMinutes(series)
	if maxGap := maxGapMinutes(series); medGap > 0 && maxGap > 3*medGap {
		d.logger.Debug("irregular sampling cadence; duration estimates assume a uniform period",
			slog.String("node", baseline.Node),
			slog.Float64("median_gap_min", medGap),
			slog.Float64("max_gap_min", maxGap))
	}

	intervals := make([]models.DegradationInterval, 0)
	for _, r := range flagRuns(series, degraded) {
		if !r.degraded {
			continue
		}

		start := series[r.start].Timestamp
		end := series[r.end].Timestamp
		minValue := series[r.start].Value
		for i := r.start + 1; i <= r.end; i++ {
			if series[i].Value < minValue {
				minValue = series[i].Value
			}
		}

		duration := runDurationMinutes(series, r, medGap)
		if duration < minDuration {
			continue
		}

		deviationPct := 0.0
		if baseline.Effective > 0 {
			deviationPct = (baseline.Effective - minValue) / baseline.Effective * 100
		}

		intervals = append(intervals, models.DegradationInterval{
			Node:             baseline.Node,
			StartTimestamp:   start,
			EndTimestamp:     end,
			MinValue:         minValue,
			BaselineValue:    baseline.Effective,
			DurationMinutes:  duration,
			Severity:         models.SeverityFromDeviation(deviationPct),
			DeviationPercent: deviationPct,
			ReadingsCount:    r.end - r.start + 1,
		})
	}

	return intervals
}

// flagRuns partitions the series into maximal runs of constant flag value:
// a linear scan that emits a run whenever the flag flips.
func flagRuns(series []models.Reading, flag func(float64) bool) []run {
	if len(series) == 0 {
		return nil
	}

	runs := make([]run, 0)
	current := run{start: 0, degraded: flag(series[0].Value)}
	for i := 1; i < len(series); i++ {
		f := flag(series[i].Value)
		if f == current.degraded {
			continue
		}
		current.end = i - 1
		runs = append(runs, current)
		current = run{start: i, degraded: f}
	}
	current.end = len(series) - 1
	runs = append(runs, current)
	return runs
}

// runDurationMinutes estimates how long a degraded run lasted. A single
// reading covers the gap to the next sample (or one fallback period when it
// is the node's last reading); a multi-reading run spans first-to-last plus
// the node's median inter-reading gap, to count the final reading's own
// coverage period.
func runDurationMinutes(series []models.Reading, r run, medianGap float64) float64 {
	start := series[r.start].Timestamp
	end := series[r.end].Timestamp

	if r.start == r.end {
		if r.end < len(series)-1 {
			return series[r.end+1].Timestamp.Sub(start).Minutes()
		}
		return fallbackPeriodMinutes
	}

	duration := end.Sub(start).Minutes()
	if medianGap > 0 {
		return duration + medianGap
	}
	return duration + fallbackPeriodMinutes
}

func medianGapMinutes(series []models.Reading) float64 {
	if len(series) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		gaps = append(gaps, series[i].Timestamp.Sub(series[i-1].Timestamp).Minutes())
	}
	return median(gaps)
}

func maxGapMinutes(series []models.Reading) float64 {
	max := 0.0
	for i := 1; i < len(series); i++ {
		if gap := series[i].Timestamp.Sub(series[i-1].Timestamp).Minutes(); gap > max {
			max = gap
		}
	}
	return max
}

func groupByNode(readings []models.Reading) map[string][]models.Reading {
	byNode := make(map[string][]models.Reading)
	for _, r := range readings {
		if r.Node == "" || r.Timestamp.IsZero() {
			continue
		}
		byNode[r.Node] = append(byNode[r.Node], r)
	}
	return byNode
}

func nodeStatistics(node string, series []models.Reading) models.NodeStatistics {
	values := make([]float64, 0, len(series))
	sum := 0.0
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, r := range series {
		values = append(values, r.Value)
		sum += r.Value
		if r.Value < min {
			min = r.Value
		}
		if r.Value > max {
			max = r.Value
		}
	}

	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return models.NodeStatistics{
		Node:   node,
		Count:  len(values),
		Mean:   mean,
		Median: median(values),
		StdDev: math.Sqrt(variance),
		Min:    min,
		Max:    max,
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
