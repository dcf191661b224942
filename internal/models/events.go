package models

import "time"

// Event is one raw fault-management record as ingested. The same EventID may
// occur several times in a batch (raised, updated, cleared).
type Event struct {
	EventID         string    `json:"event_id"`
	Node            string    `json:"node"`
	NodeID          string    `json:"node_id"`
	Timestamp       time.Time `json:"timestamp"`
	RaisedTime      time.Time `json:"raised_time,omitempty"`
	ClearedTime     time.Time `json:"cleared_time,omitempty"`
	Severity        string    `json:"severity"`
	Type            string    `json:"type"`
	SpecificProblem string    `json:"specific_problem"`
	ProbableCause   string    `json:"probable_cause"`
	AdditionalText  string    `json:"additional_text"`
	ManagedObject   string    `json:"managed_object"`
	NBIInfo         string    `json:"nbi_info"`
}

// TemporalRelation positions an event occurrence relative to an interval.
type TemporalRelation string

const (
	RelationBefore TemporalRelation = "BEFORE"
	RelationDuring TemporalRelation = "DURING"
	RelationAfter  TemporalRelation = "AFTER"
)

// StatusUpdate is one entry in a consolidated event's status timeline.
type StatusUpdate struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Cleared   bool      `json:"cleared"`
}

// ConsolidatedEvent merges every occurrence of one event id matched into one
// interval's window. Static fields come from the earliest occurrence; the
// timeline lists every occurrence in chronological order.
type ConsolidatedEvent struct {
	EventID           string           `json:"event_id"`
	Node              string           `json:"node"`
	NodeID            string           `json:"node_id"`
	Type              string           `json:"type"`
	SpecificProblem   string           `json:"specific_problem"`
	ProbableCause     string           `json:"probable_cause"`
	AdditionalText    string           `json:"additional_text"`
	ManagedObject     string           `json:"managed_object"`
	Relation          TemporalRelation `json:"temporal_relationship"`
	MinutesFromStart  float64          `json:"minutes_from_interval_start"`
	Severity          string           `json:"severity"`
	EarliestTimestamp time.Time        `json:"earliest_timestamp"`
	StatusTimeline    []StatusUpdate   `json:"status_timeline"`
}

// CorrelationResult maps each interval index to its consolidated events.
// Every interval index is present; an interval with no matches maps to an
// empty slice, not a missing key.
type CorrelationResult map[int][]ConsolidatedEvent

// TotalEvents counts consolidated events across all intervals.
func (c CorrelationResult) TotalEvents() int {
	total := 0
	for _, events := range c {
		total += len(events)
	}
	return total
}

// IntervalsWithEvents counts intervals with at least one matched event.
func (c CorrelationResult) IntervalsWithEvents() int {
	count := 0
	for _, events := range c {
		if len(events) > 0 {
			count++
		}
	}
	return count
}
