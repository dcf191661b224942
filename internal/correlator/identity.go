package correlator

import (
	"regexp"
	"strings"

	"github.com/netsentry/kpi-rca/internal/models"
)

// nodeIDPattern captures the canonical numeric identity from the two known
// managed-object prefixes, e.g. "PLMN-PLMN/MRBTS-1900/..." -> "1900".
var nodeIDPattern = regexp.MustCompile(`(?:MRBTS-|BSC-)(\d+)`)

// IdentityExtractor is one best-effort strategy for pulling a canonical node
// identity out of an event. Extractors never fail hard; a miss just reports
// false so the next strategy can try.
type IdentityExtractor func(models.Event) (string, bool)

// identityExtractors are tried in priority order: a pre-resolved identity
// always beats re-parsing the location string.
var identityExtractors = []IdentityExtractor{
	fromResolvedID,
	fromManagedObject,
}

func fromResolvedID(ev models.Event) (string, bool) {
	id := strings.TrimSpace(ev.NodeID)
	return id, id != ""
}

func fromManagedObject(ev models.Event) (string, bool) {
	m := nodeIDPattern.FindStringSubmatch(ev.ManagedObject)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractNodeID resolves an event's canonical node identity, reporting false
// when no strategy succeeds. Events without an identity never match any
// interval.
func ExtractNodeID(ev models.Event) (string, bool) {
	for _, extract := range identityExtractors {
		if id, ok := extract(ev); ok {
			return id, true
		}
	}
	return "", false
}

// NormalizeNodeID reduces a node identifier to its canonical numeric form:
// "MRBTS-1900" and "1900" both normalise to "1900". Identifiers without a
// known prefix pass through trimmed.
func NormalizeNodeID(node string) string {
	s := strings.TrimSpace(node)
	if s == "" {
		return ""
	}
	if m := nodeIDPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
