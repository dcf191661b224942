package reasoning

import (
	"fmt"
	"strings"
	"time"

	"github.com/netsentry/kpi-rca/internal/models"
)

const systemPrompt = "You are a telecommunications network expert specializing in KPI degradation analysis and alarm correlation. Always respond with valid JSON."

// BuildPrompt renders one interval and its consolidated events into the
// natural-language request sent to the reasoning service. Each event's status
// timeline is listed chronologically so the service can judge whether a fault
// cleared inside the window or stayed active.
func BuildPrompt(interval models.DegradationInterval, events []models.ConsolidatedEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a telecommunications network expert analyzing success-rate KPI degradations and their correlation with fault-management alarms.

Degradation Details:
- Node: %s
- Start Time: %s
- End Time: %s
- Duration: %.1f minutes
- Minimum Value: %.2f
- Baseline (Threshold): %.2f
- Deviation: %.1f%%
- Severity: %s
`,
		interval.Node,
		interval.StartTimestamp.Format(time.RFC3339),
		interval.EndTimestamp.Format(time.RFC3339),
		interval.DurationMinutes,
		interval.MinValue,
		interval.BaselineValue,
		interval.DeviationPercent,
		interval.Severity,
	)

	b.WriteString("\nRelated Alarms (one entry per unique alarm ID; each may have multiple status events in the time window):\n")
	if len(events) == 0 {
		b.WriteString("No alarms found in the time window.\n")
	}
	for i, ev := range events {
		fmt.Fprintf(&b, `
Alarm %d:
- Alarm ID: %s
- First event in window - Temporal Relationship: %s
- Time from Degradation Start: %.1f minutes
- Alarm Type: %s
- Specific Problem: %s
- Probable Cause: %s
- Additional Text: %s
- Managed Object: %s
- Status timeline (chronological): %s
`,
			i+1,
			ev.EventID,
			ev.Relation,
			ev.MinutesFromStart,
			orUnknown(ev.Type),
			orUnknown(ev.SpecificProblem),
			orUnknown(ev.ProbableCause),
			truncate(ev.AdditionalText, 200),
			truncate(ev.ManagedObject, 100),
			renderTimeline(ev.StatusTimeline),
		)
	}

	b.WriteString(`
Analyze the correlation between the degradation and the alarms. For each alarm, infer from its status timeline whether it was CLEARED within the time window (last entry cleared) or STILL ACTIVE at the end, and use that when judging causality.

Respond with JSON in exactly this shape:
{
    "overall_verdict": "causal" | "possible" | "coincidental" | "no_correlation",
    "confidence_score": 0.0-1.0,
    "root_cause_analysis": "optional short paragraph on likely root cause(s)",
    "alarm_analysis": [
        {
            "alarm_id": "string",
            "relevance_score": 0.0-1.0,
            "is_causal": true,
            "reasoning": "explanation",
            "lifespan_note": "optional, e.g. cleared during window / still active at end",
            "suggested_fix": ["optional, 1-3 concrete steps"]
        }
    ],
    "top_reasons": ["reason 1", "reason 2", "reason 3"],
    "recommended_actions": ["specific ordered action 1", "specific action 2"],
    "analysis_summary": "detailed explanation referencing alarm lifespans where relevant"
}

Guidelines:
- "causal": strong evidence the alarms directly caused the degradation
- "possible": some evidence of correlation but not definitive
- "coincidental": alarms present but unlikely to be related
- "no_correlation": no alarms or alarms clearly unrelated

Consider temporal correlation (alarms before/during are more relevant), spatial correlation (same node), alarm types that typically affect success rate, severity and lifespan. If no alarms are found, recommend further investigation steps.`)

	return b.String()
}

func renderTimeline(timeline []models.StatusUpdate) string {
	if len(timeline) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(timeline))
	for _, update := range timeline {
		label := "raised/updated"
		if update.Cleared {
			label = "cleared"
		}
		parts = append(parts, fmt.Sprintf("%s - %s (%s)", update.Timestamp.Format(time.RFC3339), update.Severity, label))
	}
	return strings.Join(parts, "; ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func truncate(s string, limit int) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
