package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/netsentry/kpi-rca/internal/models"
	"github.com/netsentry/kpi-rca/internal/utils"
)

// rawEvent mirrors one fault-management record as it appears on the feed.
type rawEvent struct {
	AlarmID            string `json:"alarmId"`
	ManagedObjectClass string `json:"managedObjectClass"`
	NBIOptionalInfo    string `json:"nbiOptionalInformation"`
	AlarmRaisedTime    string `json:"alarmRaisedTime"`
	AlarmClearedTime   string `json:"alarmClearedTime"`
	NBIEventTime       string `json:"nbiEventTime"`
	PerceivedSeverity  string `json:"perceivedSeverity"`
	AlarmType          string `json:"alarmType"`
	SpecificProblem    string `json:"specificProblem"`
	ProbableCause      string `json:"probableCause"`
	AdditionalText     string `json:"additionalText"`
	EventType          string `json:"EventType"`
}

var managedObjectIDPattern = regexp.MustCompile(`(?:MRBTS-|BSC-)(\d+)`)

// LoadEvents reads and normalises a fault-event file.
func (l *Loader) LoadEvents(path string) ([]models.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.InputError("ingest.LoadEvents", "open events file", err)
	}
	defer f.Close()
	return l.ParseEvents(f)
}

// ParseEvents normalises a JSON event source, accepted either as a single
// array or as one object per line. Malformed lines are skipped; records with
// no resolvable primary timestamp are dropped. The result is ordered by
// primary timestamp.
func (l *Loader) ParseEvents(r io.Reader) ([]models.Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, utils.InputError("ingest.ParseEvents", "read events source", err)
	}

	raws, skipped := decodeRawEvents(data)
	if skipped > 0 {
		l.logger.Debug("skipped malformed event records", slog.Int("count", skipped))
	}

	events := make([]models.Event, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		ev, ok := normalizeEvent(raw)
		if !ok {
			dropped++
			continue
		}
		events = append(events, ev)
	}
	if dropped > 0 {
		l.logger.Debug("dropped events without a primary timestamp", slog.Int("count", dropped))
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return events, nil
}

// decodeRawEvents tries the array form first, then a lone object, then the
// line-delimited form. It reports how many line records failed to parse.
func decodeRawEvents(data []byte) ([]rawEvent, int) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, 0
	}

	var list []rawEvent
	if err := json.Unmarshal(trimmed, &list); err == nil {
		return list, 0
	}

	var single rawEvent
	if err := json.Unmarshal(trimmed, &single); err == nil {
		return []rawEvent{single}, 0
	}

	raws := make([]rawEvent, 0)
	skipped := 0
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw rawEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			skipped++
			continue
		}
		raws = append(raws, raw)
	}
	return raws, skipped
}

func normalizeEvent(raw rawEvent) (models.Event, bool) {
	raised := parseOptionalTime(raw.AlarmRaisedTime)
	cleared := parseOptionalTime(raw.AlarmClearedTime)
	eventTime := parseOptionalTime(raw.NBIEventTime)

	// The explicit event time wins over the raised time when both exist.
	primary := eventTime
	if primary.IsZero() {
		primary = raised
	}
	if primary.IsZero() {
		return models.Event{}, false
	}

	node := extractNodeFromManagedObject(raw.ManagedObjectClass)
	if node == "" {
		node = extractNodeFromNBIInfo(raw.NBIOptionalInfo)
	}

	nodeID := ""
	if m := managedObjectIDPattern.FindStringSubmatch(raw.ManagedObjectClass); m != nil {
		nodeID = m[1]
	}

	return models.Event{
		EventID:         raw.AlarmID,
		Node:            node,
		NodeID:          nodeID,
		Timestamp:       primary,
		RaisedTime:      raised,
		ClearedTime:     cleared,
		Severity:        raw.PerceivedSeverity,
		Type:            raw.AlarmType,
		SpecificProblem: raw.SpecificProblem,
		ProbableCause:   raw.ProbableCause,
		AdditionalText:  raw.AdditionalText,
		ManagedObject:   raw.ManagedObjectClass,
		NBIInfo:         raw.NBIOptionalInfo,
	}, true
}

func parseOptionalTime(value string) time.Time {
	t, err := utils.ParseEventTimestamp(value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// extractNodeFromManagedObject pulls the human-readable node token from a
// location string like "PLMN-PLMN/MRBTS-685256/...". When neither known
// prefix appears, the first meaningful path segment after PLMN is used.
func extractNodeFromManagedObject(managedObject string) string {
	if managedObject == "" {
		return ""
	}
	parts := strings.Split(managedObject, "/")
	for _, part := range parts {
		if strings.HasPrefix(part, "MRBTS-") || strings.HasPrefix(part, "BSC-") {
			return part
		}
	}
	if len(parts) > 1 {
		if parts[1] != "PLMN-PLMN" {
			return parts[1]
		}
		if len(parts) > 2 {
			return parts[2]
		}
	}
	return ""
}

// extractNodeFromNBIInfo parses "NEName=EMH229|siteObjName=EMH229_TWL|..."
// metadata, preferring NEName.
func extractNodeFromNBIInfo(nbiInfo string) string {
	if nbiInfo == "" {
		return ""
	}
	for _, key := range []string{"NEName=", "siteObjName="} {
		if idx := strings.Index(nbiInfo, key); idx >= 0 {
			value := nbiInfo[idx+len(key):]
			if sep := strings.Index(value, "|"); sep >= 0 {
				value = value[:sep]
			}
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}
