// Package correlator joins degradation intervals with time-adjacent fault
// events on the same node and consolidates repeated status updates.
package correlator

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/netsentry/kpi-rca/internal/models"
)

// Match is one raw event occurrence that fell inside an interval's window.
type Match struct {
	Event            models.Event
	Relation         models.TemporalRelation
	MinutesFromStart float64
}

// Correlator performs the temporal/spatial join between intervals and events.
type Correlator struct {
	logger *slog.Logger
}

// New constructs a Correlator.
func New(logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{logger: logger}
}

// MatchWindow returns the raw event occurrences on the interval's node whose
// timestamps lie in the closed window [start - before, end + after], ordered
// by timestamp. Node comparison uses canonical numeric identities, so
// "MRBTS-1900" and "1900" are the same node.
func (c *Correlator) MatchWindow(interval models.DegradationInterval, events []models.Event, beforeMin, afterMin float64) []Match {
	intervalID := NormalizeNodeID(interval.Node)
	windowStart := interval.StartTimestamp.Add(-minutes(beforeMin))
	windowEnd := interval.EndTimestamp.Add(minutes(afterMin))

	matches := make([]Match, 0)
	for _, ev := range events {
		eventID, ok := ExtractNodeID(ev)
		if !ok || eventID != intervalID {
			continue
		}
		if ev.Timestamp.Before(windowStart) || ev.Timestamp.After(windowEnd) {
			continue
		}

		relation := models.RelationDuring
		if ev.Timestamp.Before(interval.StartTimestamp) {
			relation = models.RelationBefore
		} else if ev.Timestamp.After(interval.EndTimestamp) {
			relation = models.RelationAfter
		}

		matches = append(matches, Match{
			Event:            ev,
			Relation:         relation,
			MinutesFromStart: ev.Timestamp.Sub(interval.StartTimestamp).Minutes(),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Event.Timestamp.Before(matches[j].Event.Timestamp)
	})

	return matches
}

// Consolidate merges matches sharing an event id into one record per id.
// Fault feeds emit one record per status transition of what is conceptually
// one fault condition; presenting those as independent alarms would
// over-count evidence downstream. Static fields come from the earliest
// occurrence; every occurrence lands on the status timeline in chronological
// order. The result is ordered by earliest timestamp.
func (c *Correlator) Consolidate(matches []Match) []models.ConsolidatedEvent {
	grouped := make(map[string][]Match)
	order := make([]string, 0)
	for _, m := range matches {
		id := m.Event.EventID
		if _, seen := grouped[id]; !seen {
			order = append(order, id)
		}
		grouped[id] = append(grouped[id], m)
	}

	consolidated := make([]models.ConsolidatedEvent, 0, len(order))
	for _, id := range order {
		group := grouped[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Event.Timestamp.Before(group[j].Event.Timestamp)
		})

		first := group[0]
		timeline := make([]models.StatusUpdate, 0, len(group))
		for _, m := range group {
			timeline = append(timeline, models.StatusUpdate{
				Timestamp: m.Event.Timestamp,
				Severity:  m.Event.Severity,
				Cleared:   isCleared(m.Event),
			})
		}

		consolidated = append(consolidated, models.ConsolidatedEvent{
			EventID:           id,
			Node:              first.Event.Node,
			NodeID:            first.Event.NodeID,
			Type:              first.Event.Type,
			SpecificProblem:   first.Event.SpecificProblem,
			ProbableCause:     first.Event.ProbableCause,
			AdditionalText:    first.Event.AdditionalText,
			ManagedObject:     first.Event.ManagedObject,
			Relation:          first.Relation,
			MinutesFromStart:  first.MinutesFromStart,
			Severity:          first.Event.Severity,
			EarliestTimestamp: first.Event.Timestamp,
			StatusTimeline:    timeline,
		})
	}

	sort.SliceStable(consolidated, func(i, j int) bool {
		if !consolidated[i].EarliestTimestamp.Equal(consolidated[j].EarliestTimestamp) {
			return consolidated[i].EarliestTimestamp.Before(consolidated[j].EarliestTimestamp)
		}
		return consolidated[i].EventID < consolidated[j].EventID
	})

	return consolidated
}

// CorrelateAll applies match + consolidate independently per interval. Every
// interval index is present in the result; no matches yields an empty slice.
// An event inside two intervals' windows is consolidated separately under
// each.
func (c *Correlator) CorrelateAll(intervals []models.DegradationInterval, events []models.Event, beforeMin, afterMin float64) models.CorrelationResult {
	result := make(models.CorrelationResult, len(intervals))
	for idx, interval := range intervals {
		result[idx] = c.Consolidate(c.MatchWindow(interval, events, beforeMin, afterMin))
	}
	return result
}

// isCleared reports whether an occurrence denotes the fault clearing: either
// the severity label says so or the feed populated a clear time.
func isCleared(ev models.Event) bool {
	return strings.EqualFold(ev.Severity, "cleared") || !ev.ClearedTime.IsZero()
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
