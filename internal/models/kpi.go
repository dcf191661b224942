package models

import "time"

// Reading is one timestamped KPI measurement for one node.
type Reading struct {
	Node      string    `json:"node"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ThresholdConfig holds the per-node tunables for baseline computation.
type ThresholdConfig struct {
	MedianPercentage float64 `yaml:"medianPercentage" json:"median_percentage"`
	StaticThreshold  float64 `yaml:"staticThreshold" json:"static_threshold"`
}

// NodeBaseline is the reference level derived from a node's own readings.
// Effective is always min(Dynamic, Static); a reading counts as degraded only
// when it falls below both bars.
type NodeBaseline struct {
	Node      string  `json:"node"`
	Median    float64 `json:"median"`
	Dynamic   float64 `json:"dynamic_threshold"`
	Static    float64 `json:"static_threshold"`
	Effective float64 `json:"effective_threshold"`
}

// NodeStatistics summarises the value distribution of one node's readings.
type NodeStatistics struct {
	Node   string  `json:"node"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}
