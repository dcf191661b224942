package models

import "time"

// Summary holds the aggregate counts of one completed run.
type Summary struct {
	TotalDegradations      int             `json:"total_degradations"`
	AffectedNodes          int             `json:"affected_nodes"`
	TotalCorrelatedEvents  int             `json:"total_correlated_events"`
	DegradationsWithEvents int             `json:"degradations_with_alarms"`
	DegradationsNoEvents   int             `json:"degradations_without_alarms"`
	Verdicts               map[Verdict]int `json:"verdicts,omitempty"`
}

// ResultBundle is the full output of one batch run. The orchestrator owns it
// for the lifetime of the run; no component retains state beyond it.
type ResultBundle struct {
	RunID        string                `json:"run_id"`
	Readings     []Reading             `json:"-"`
	Events       []Event               `json:"-"`
	Degradations []DegradationInterval `json:"degradations"`
	Correlations CorrelationResult     `json:"correlations"`
	Verdicts     map[int]CausalVerdict `json:"verdicts"`
	Summary      Summary               `json:"summary"`
	CompletedAt  time.Time             `json:"completed_at"`
}
