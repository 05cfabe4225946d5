package domain

import (
	"fmt"
	"strings"
)

// Canonical field names of the pipeline-internal schema. Every source
// column is mapped onto one of these or dropped.
const (
	FieldPeriod           = "period"
	FieldLine             = "line"
	FieldStation          = "station"
	FieldPassengerCount   = "passenger_count"
	FieldDispatchedTrains = "dispatched_trains"
)

// RequiredFields are the canonical fields a ridership extract must resolve
// before it can enter consolidation. Dispatched trains are optional because
// most turnstile extracts do not carry them.
func RequiredFields() []string {
	return []string{FieldPeriod, FieldLine, FieldStation, FieldPassengerCount}
}

// Provenance marks whether values were derived from real observations or
// synthesized. Downstream consumers must render the two distinctly.
type Provenance string

const (
	ProvenanceReal Provenance = "REAL"
	ProvenanceDemo Provenance = "DEMO"
)

// RawRecord is one unprocessed row from a source extract, keyed by the
// file's own column names.
type RawRecord struct {
	SourceFile string
	Values     map[string]string
}

// CanonicalRecord is one row in the canonical schema.
type CanonicalRecord struct {
	Period         Period
	Line           LineCode
	Station        string
	PassengerCount int64

	// DispatchedTrains is nil when the source file carries no dispatch
	// signal for the row.
	DispatchedTrains *int64

	Provenance Provenance
	SourceFile string
}

// RecordKey is the uniqueness key of the canonical dataset.
type RecordKey struct {
	Period  Period
	Line    LineCode
	Station string
}

// Key returns the record's (period, line, station) key. Station matching is
// case-insensitive so the same stop reported with different casing dedups.
func (r CanonicalRecord) Key() RecordKey {
	return RecordKey{
		Period:  r.Period,
		Line:    r.Line,
		Station: strings.ToLower(strings.TrimSpace(r.Station)),
	}
}

// Dataset is an ordered collection of canonical records handed off to
// downstream consumers as an immutable snapshot.
type Dataset struct {
	Records    []CanonicalRecord
	Provenance Provenance
}

// Validate checks the dataset invariants: unique keys, periods inside the
// valid range, and non-negative passenger counts.
func (d Dataset) Validate(valid PeriodRange) error {
	seen := make(map[RecordKey]struct{}, len(d.Records))
	for i, rec := range d.Records {
		if !rec.Line.IsValid() {
			return fmt.Errorf("record %d: invalid line %q", i, rec.Line)
		}
		if rec.PassengerCount < 0 {
			return fmt.Errorf("record %d: negative passenger count %d", i, rec.PassengerCount)
		}
		if !valid.Contains(rec.Period) {
			return fmt.Errorf("record %d: period %s outside valid range %s..%s",
				i, rec.Period, valid.Start, valid.End)
		}
		key := rec.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("record %d: duplicate key (%s, %s, %s)",
				i, key.Period, key.Line, rec.Station)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// IsEmpty reports whether the dataset has no records.
func (d Dataset) IsEmpty() bool {
	return len(d.Records) == 0
}
