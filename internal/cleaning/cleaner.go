// Package cleaning turns mapped raw rows into canonical records: trimming,
// type coercion, invalid-row dropping and first-seen deduplication.
package cleaning

import (
	"log/slog"
	"strconv"
	"strings"

	"subtepulse/pkg/contracts/domain"
)

// Cleaner converts raw rows into canonical records, dropping rows that
// fail coercion and deduplicating on the (period, line, station) key.
type Cleaner struct {
	logger     *slog.Logger
	validRange domain.PeriodRange
}

// NewCleaner creates a cleaner bound to the configured valid period range.
func NewCleaner(logger *slog.Logger, validRange domain.PeriodRange) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger, validRange: validRange}
}

// CleanFile maps raw rows through the column mapping and produces canonical
// records plus a per-file report. Rows that fail type coercion or violate
// invariants are dropped and counted, never fatal. Duplicate keys keep the
// first occurrence in input order, so cleaning already-clean data is a
// no-op.
func (c *Cleaner) CleanFile(mapping domain.ColumnMapping, rows []domain.RawRecord) ([]domain.CanonicalRecord, domain.FileReport) {
	report := domain.FileReport{
		File:   mapping.SourceFile,
		RowsIn: len(rows),
	}

	records := make([]domain.CanonicalRecord, 0, len(rows))
	seen := make(map[domain.RecordKey]struct{}, len(rows))

	for _, row := range rows {
		rec, ok := c.cleanRow(mapping, row)
		if !ok {
			report.RowsDropped++
			continue
		}

		key := rec.Key()
		if _, dup := seen[key]; dup {
			report.RowsDeduped++
			continue
		}
		seen[key] = struct{}{}
		records = append(records, rec)
	}

	report.RowsOut = len(records)

	c.logger.Info("cleaned file",
		slog.String("file", mapping.SourceFile),
		slog.Int("rows_in", report.RowsIn),
		slog.Int("rows_dropped", report.RowsDropped),
		slog.Int("rows_deduped", report.RowsDeduped),
		slog.Int("rows_out", report.RowsOut))

	return records, report
}

// cleanRow coerces one raw row. Any unparsable required field rejects the
// whole row.
func (c *Cleaner) cleanRow(mapping domain.ColumnMapping, row domain.RawRecord) (domain.CanonicalRecord, bool) {
	rawValue := func(field string) (string, bool) {
		col, ok := mapping.RawColumn(field)
		if !ok {
			return "", false
		}
		v, ok := row.Values[col]
		return strings.TrimSpace(v), ok
	}

	periodStr, ok := rawValue(domain.FieldPeriod)
	if !ok || periodStr == "" {
		return domain.CanonicalRecord{}, false
	}
	period, err := domain.ParsePeriod(periodStr)
	if err != nil || !c.validRange.Contains(period) {
		return domain.CanonicalRecord{}, false
	}

	lineStr, ok := rawValue(domain.FieldLine)
	if !ok {
		return domain.CanonicalRecord{}, false
	}
	line, err := domain.NormalizeLine(lineStr)
	if err != nil {
		return domain.CanonicalRecord{}, false
	}

	station, ok := rawValue(domain.FieldStation)
	if !ok || station == "" {
		return domain.CanonicalRecord{}, false
	}

	paxStr, ok := rawValue(domain.FieldPassengerCount)
	if !ok {
		return domain.CanonicalRecord{}, false
	}
	pax, err := ParseCount(paxStr)
	if err != nil || pax < 0 {
		return domain.CanonicalRecord{}, false
	}

	rec := domain.CanonicalRecord{
		Period:         period,
		Line:           line,
		Station:        station,
		PassengerCount: pax,
		Provenance:     domain.ProvenanceReal,
		SourceFile:     mapping.SourceFile,
	}

	// Dispatched trains are optional; a bad value clears the field rather
	// than dropping the row.
	if trainsStr, ok := rawValue(domain.FieldDispatchedTrains); ok && trainsStr != "" {
		if trains, err := ParseCount(trainsStr); err == nil && trains >= 0 {
			rec.DispatchedTrains = &trains
		}
	}

	return rec, true
}

// ParseCount parses a non-negative integer count, tolerating the thousands
// separators and decimal zero suffixes the extracts use ("1,234", "1234.0").
func ParseCount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, strconv.ErrSyntax
	}
	return int64(f), nil
}
