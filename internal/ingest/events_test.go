package ingest

import (
	"strings"
	"testing"
	"time"
)

const sampleAlarm = `{
	"alarmId": "9144",
	"managedObjectClass": "PLMN-PLMN/MRBTS-1900/TNLSVC-1/TNL-1/IPNO-1/IEIF-2",
	"nbiOptionalInformation": "NEName=EMH229|siteObjName=EMH229_TWL|alarmText=link down",
	"alarmRaisedTime": "2025-9-10,14:18:14.0,+3:0",
	"nbiEventTime": "2025-9-10,14:20:00.0,+3:0",
	"perceivedSeverity": "MAJOR",
	"alarmType": "COMMUNICATION",
	"specificProblem": "BASE STATION CONNECTIVITY DEGRADED",
	"probableCause": "Connection failure",
	"additionalText": "transport link lost"
}`

func TestParseEventsArrayForm(t *testing.T) {
	l := NewLoader(nil)
	events, err := l.ParseEvents(strings.NewReader("[" + sampleAlarm + "]"))
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if ev.EventID != "9144" {
		t.Fatalf("event id = %s", ev.EventID)
	}
	if ev.Node != "MRBTS-1900" {
		t.Fatalf("node = %s, want MRBTS-1900", ev.Node)
	}
	if ev.NodeID != "1900" {
		t.Fatalf("node id = %s, want 1900", ev.NodeID)
	}
	// The explicit event time takes precedence over the raised time.
	want := time.Date(2025, 9, 10, 14, 20, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Fatalf("primary timestamp = %v, want %v", ev.Timestamp, want)
	}
	wantRaised := time.Date(2025, 9, 10, 14, 18, 14, 0, time.UTC)
	if !ev.RaisedTime.Equal(wantRaised) {
		t.Fatalf("raised time = %v, want %v", ev.RaisedTime, wantRaised)
	}
	if ev.Severity != "MAJOR" || ev.Type != "COMMUNICATION" {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
}

func TestParseEventsSingleObject(t *testing.T) {
	l := NewLoader(nil)
	events, err := l.ParseEvents(strings.NewReader(sampleAlarm))
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

func TestParseEventsLineDelimited(t *testing.T) {
	line := `{"alarmId":"1","managedObjectClass":"PLMN-PLMN/MRBTS-10/X","alarmRaisedTime":"2025-9-10,10:00:00.0,+3:0","perceivedSeverity":"MINOR"}`
	later := `{"alarmId":"2","managedObjectClass":"PLMN-PLMN/MRBTS-10/X","alarmRaisedTime":"2025-9-10,09:00:00.0,+3:0","perceivedSeverity":"MAJOR"}`
	input := line + "\n" + "not json at all" + "\n" + later + "\n"

	l := NewLoader(nil)
	events, err := l.ParseEvents(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected malformed line to be skipped, got %d events", len(events))
	}
	// Ordered by primary timestamp, so the 09:00 alarm comes first.
	if events[0].EventID != "2" || events[1].EventID != "1" {
		t.Fatalf("unexpected order: %s, %s", events[0].EventID, events[1].EventID)
	}
}

func TestParseEventsDropsMissingTimestamp(t *testing.T) {
	input := `[{"alarmId":"1","managedObjectClass":"PLMN-PLMN/MRBTS-10/X","perceivedSeverity":"MINOR"}]`

	l := NewLoader(nil)
	events, err := l.ParseEvents(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected event without timestamps to be dropped, got %d", len(events))
	}
}

func TestParseEventsClearedTime(t *testing.T) {
	input := `[{"alarmId":"1","managedObjectClass":"PLMN-PLMN/MRBTS-10/X","alarmRaisedTime":"2025-9-10,10:00:00.0,+3:0","alarmClearedTime":"2025-9-10,10:05:30.0,+3:0","perceivedSeverity":"CLEARED"}]`

	l := NewLoader(nil)
	events, err := l.ParseEvents(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	want := time.Date(2025, 9, 10, 10, 5, 30, 0, time.UTC)
	if !events[0].ClearedTime.Equal(want) {
		t.Fatalf("cleared time = %v, want %v", events[0].ClearedTime, want)
	}
}

func TestExtractNodeFallsBackToNBIInfo(t *testing.T) {
	input := `[{"alarmId":"1","nbiOptionalInformation":"NEName=EMH229|siteObjName=EMH229_TWL","alarmRaisedTime":"2025-9-10,10:00:00.0,+3:0"}]`

	l := NewLoader(nil)
	events, err := l.ParseEvents(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Node != "EMH229" {
		t.Fatalf("node = %s, want NEName fallback EMH229", events[0].Node)
	}
	if events[0].NodeID != "" {
		t.Fatalf("node id should stay empty without a managed-object identity, got %s", events[0].NodeID)
	}
}

func TestExtractNodeFromManagedObjectVariants(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"PLMN-PLMN/MRBTS-685256/TNLSVC-1", "MRBTS-685256"},
		{"PLMN-PLMN/BSC-12/BCF-3", "BSC-12"},
		{"NET/PLMN-PLMN/SITE-9", "SITE-9"},
		{"NET/SITE-9/X", "SITE-9"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := extractNodeFromManagedObject(tc.in); got != tc.want {
			t.Fatalf("extractNodeFromManagedObject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
