package models

// Verdict is the causal judgment for one interval.
type Verdict string

const (
	VerdictCausal        Verdict = "causal"
	VerdictPossible      Verdict = "possible"
	VerdictCoincidental  Verdict = "coincidental"
	VerdictNoCorrelation Verdict = "no_correlation"
)

// EventAssessment is the reasoning service's judgment of one matched event.
type EventAssessment struct {
	EventID        string   `json:"alarm_id"`
	RelevanceScore float64  `json:"relevance_score"`
	IsCausal       bool     `json:"is_causal"`
	Reasoning      string   `json:"reasoning"`
	LifespanNote   string   `json:"lifespan_note,omitempty"`
	SuggestedFix   []string `json:"suggested_fix,omitempty"`
}

// CausalVerdict is the structured output of one reasoning call. A verdict is
// always produced for an evaluated interval: terminal reasoning failures
// surface as a fallback verdict with the error recorded, never as a batch
// error.
type CausalVerdict struct {
	IntervalIndex      int               `json:"interval_index"`
	OverallVerdict     Verdict           `json:"overall_verdict"`
	ConfidenceScore    float64           `json:"confidence_score"`
	RootCauseAnalysis  string            `json:"root_cause_analysis,omitempty"`
	EventAssessments   []EventAssessment `json:"alarm_analysis"`
	TopReasons         []string          `json:"top_reasons"`
	RecommendedActions []string          `json:"recommended_actions"`
	AnalysisSummary    string            `json:"analysis_summary"`

	// Metadata echoed from the evaluated interval.
	Node        string `json:"degradation_node,omitempty"`
	StartTime   string `json:"degradation_start,omitempty"`
	EventsCount int    `json:"alarms_count"`
	Err         string `json:"error,omitempty"`
}
