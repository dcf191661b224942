// Package ingest implements the normalizer contracts at the batch boundary:
// a tabular KPI source becomes canonical readings and a JSON fault feed
// becomes canonical events. Individual bad records are dropped; an
// unresolvable layout is fatal for the batch.
package ingest

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/netsentry/kpi-rca/internal/models"
	"github.com/netsentry/kpi-rca/internal/utils"
)

// Loader normalises raw reading and event sources.
type Loader struct {
	logger *slog.Logger
}

// NewLoader constructs a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// readingColumns holds the resolved column indexes of a tabular source.
type readingColumns struct {
	node  int
	ts    int
	date  int
	hour  int
	value int
}

// LoadReadings reads and normalises a KPI readings file.
func (l *Loader) LoadReadings(path string) ([]models.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.InputError("ingest.LoadReadings", "open readings file", err)
	}
	defer f.Close()
	return l.ParseReadings(f)
}

// ParseReadings normalises a CSV source into ordered readings. Columns are
// resolved by case-insensitive name sniffing; a timestamp column, or a date
// column combined with an hour column, supplies the instant (hour value 24
// rolls to hour 0 of the next day). Rows missing node, timestamp, or value
// are dropped. Absence of a resolvable timestamp or value column is fatal.
func (l *Loader) ParseReadings(r io.Reader) ([]models.Reading, error) {
	const op = "ingest.ParseReadings"

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, utils.InputError(op, "read header row", err)
	}

	cols, err := sniffColumns(header)
	if err != nil {
		return nil, err
	}

	readings := make([]models.Reading, 0)
	dropped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A ragged or unquotable row is a per-record problem.
			dropped++
			continue
		}

		reading, ok := parseRow(record, cols)
		if !ok {
			dropped++
			continue
		}
		readings = append(readings, reading)
	}

	if dropped > 0 {
		l.logger.Debug("dropped unparsable reading rows", slog.Int("count", dropped))
	}

	sort.SliceStable(readings, func(i, j int) bool {
		if readings[i].Node != readings[j].Node {
			return readings[i].Node < readings[j].Node
		}
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})

	return readings, nil
}

// sniffColumns resolves the node, time, and value columns from header names.
// The checks mirror the feed conventions: identifiers containing node/site/
// cell, a date column (optionally paired with an hour column) or a single
// timestamp column, and a KPI column containing rrc, sr, or success.
func sniffColumns(header []string) (readingColumns, error) {
	const op = "ingest.ParseReadings"
	cols := readingColumns{node: -1, ts: -1, date: -1, hour: -1, value: -1}

	for i, name := range header {
		lower := strings.ToLower(strings.TrimSpace(name))
		switch {
		case cols.node < 0 && (strings.Contains(lower, "node") || strings.Contains(lower, "site") || strings.Contains(lower, "cell")):
			cols.node = i
		case cols.date < 0 && strings.Contains(lower, "date"):
			cols.date = i
		case cols.hour < 0 && strings.Contains(lower, "hour"):
			cols.hour = i
		case cols.ts < 0 && (strings.Contains(lower, "timestamp") || strings.Contains(lower, "time")):
			cols.ts = i
		case cols.value < 0 && (strings.Contains(lower, "rrc") || strings.Contains(lower, "sr") || strings.Contains(lower, "success")):
			cols.value = i
		}
	}

	// Positional fallbacks for headerless-style exports.
	if cols.node < 0 {
		cols.node = 0
	}
	if cols.ts < 0 && cols.date < 0 && len(header) > 1 {
		cols.date = 1
	}
	if cols.value < 0 && len(header) > 3 {
		cols.value = 3
	}

	if cols.ts < 0 && cols.date < 0 {
		return cols, utils.InputError(op, "no timestamp or date column found", nil)
	}
	if cols.value < 0 {
		return cols, utils.InputError(op, "no KPI value column found", nil)
	}
	return cols, nil
}

func parseRow(record []string, cols readingColumns) (models.Reading, bool) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	node := field(cols.node)
	if node == "" {
		return models.Reading{}, false
	}

	ts, ok := rowTimestamp(field, cols)
	if !ok {
		return models.Reading{}, false
	}

	value, err := strconv.ParseFloat(field(cols.value), 64)
	if err != nil {
		return models.Reading{}, false
	}

	return models.Reading{Node: node, Timestamp: ts, Value: value}, true
}

func rowTimestamp(field func(int) string, cols readingColumns) (time.Time, bool) {
	if cols.date >= 0 && cols.hour >= 0 {
		date, err := utils.ParseReadingTimestamp(field(cols.date))
		if err != nil {
			return time.Time{}, false
		}
		hour, err := strconv.Atoi(field(cols.hour))
		if err != nil || hour < 0 || hour > 24 {
			return time.Time{}, false
		}
		if hour == 24 {
			// Hour 24 is midnight of the following day in this feed.
			return date.AddDate(0, 0, 1), true
		}
		return date.Add(time.Duration(hour) * time.Hour), true
	}

	col := cols.ts
	if col < 0 {
		col = cols.date
	}
	ts, err := utils.ParseReadingTimestamp(field(col))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
