// Package detect locates the station, passenger-count and line columns of
// an arbitrary cleaned tabular dataset without relying on fixed names. The
// scoring is an explicit ordered rule table returning traceable reasons:
// the decision it gates (real data vs demo fallback) must be explainable.
package detect

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"subtepulse/internal/cleaning"
	"subtepulse/internal/schema"
	"subtepulse/pkg/contracts/domain"
)

// Rule scores are fixed per tier so a reader can reconstruct any
// confidence value from the reasons list.
const (
	scoreExactAlias     = 1.0
	scoreAliasSubstring = 0.8
	scoreContentMatch   = 0.6
)

// sampleRows caps how many rows the content heuristics inspect.
const sampleRows = 200

// Detection is the outcome for one canonical field.
type Detection struct {
	Field      string   `json:"field"`
	Column     string   `json:"column,omitempty"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Mode says whether detected columns are trustworthy enough to present
// conclusions as real-data-backed.
type Mode string

const (
	ModeReal Mode = "REAL"
	ModeDemo Mode = "DEMO"
)

// Decision is the deterministic gate result.
type Decision struct {
	Mode         Mode     `json:"mode"`
	FailedFields []string `json:"failed_fields,omitempty"`
	Threshold    float64  `json:"threshold"`
}

// Detector applies the rule table.
type Detector struct {
	logger    *slog.Logger
	aliases   map[string][]string
	threshold float64
}

// NewDetector creates a detector with the given alias table and confidence
// threshold.
func NewDetector(logger *slog.Logger, aliases map[string][]string, threshold float64) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger, aliases: aliases, threshold: threshold}
}

// detectedFields are the fields the auto-detector must locate.
func detectedFields() []string {
	return []string{domain.FieldLine, domain.FieldStation, domain.FieldPassengerCount}
}

// Detect scores every column against every field and picks the best
// unclaimed column per field. Ties break to the leftmost column so the
// result is deterministic for a given header order.
func (d *Detector) Detect(headers []string, rows [][]string) map[string]Detection {
	columns := make([][]string, len(headers))
	for i := range headers {
		columns[i] = columnSample(rows, i)
	}

	results := make(map[string]Detection, len(detectedFields()))
	claimed := make(map[int]bool, len(headers))

	for _, field := range detectedFields() {
		best := Detection{Field: field}
		bestIdx := -1

		for i, header := range headers {
			if claimed[i] {
				continue
			}
			score, reasons := d.scoreColumn(field, header, columns[i])
			if score > best.Confidence {
				best = Detection{
					Field:      field,
					Column:     header,
					Confidence: score,
					Reasons:    reasons,
				}
				bestIdx = i
			}
		}

		if bestIdx >= 0 {
			claimed[bestIdx] = true
		}
		results[field] = best

		d.logger.Debug("column detection",
			slog.String("field", field),
			slog.String("column", best.Column),
			slog.Float64("confidence", best.Confidence))
	}

	return results
}

// scoreColumn runs the ordered rule table for one (field, column) pair.
// The confidence is the best matching tier; every matched rule leaves a
// reason.
func (d *Detector) scoreColumn(field, header string, values []string) (float64, []string) {
	var score float64
	var reasons []string

	normalized := schema.NormalizeHeader(header)

	for _, alias := range d.aliases[field] {
		want := schema.NormalizeHeader(alias)
		if normalized == want {
			score = max(score, scoreExactAlias)
			reasons = append(reasons, fmt.Sprintf("header %q equals alias %q", header, alias))
			break
		}
		if strings.Contains(normalized, want) {
			score = max(score, scoreAliasSubstring)
			reasons = append(reasons, fmt.Sprintf("header %q contains alias %q", header, alias))
		}
	}

	if ok, reason := contentMatch(field, values); ok {
		score = max(score, scoreContentMatch)
		reasons = append(reasons, reason)
	}

	return score, reasons
}

// contentMatch applies per-field content heuristics over the sample.
func contentMatch(field string, values []string) (bool, string) {
	if len(values) == 0 {
		return false, ""
	}

	switch field {
	case domain.FieldLine:
		hits := 0
		for _, v := range values {
			if _, err := domain.NormalizeLine(v); err == nil {
				hits++
			}
		}
		if ratio := float64(hits) / float64(len(values)); ratio >= 0.9 {
			return true, fmt.Sprintf("%.0f%% of sampled values are known line codes", ratio*100)
		}

	case domain.FieldPassengerCount:
		hits := 0
		for _, v := range values {
			if n, err := cleaning.ParseCount(v); err == nil && n >= 0 {
				hits++
			}
		}
		if ratio := float64(hits) / float64(len(values)); ratio >= 0.95 {
			return true, fmt.Sprintf("%.0f%% of sampled values are non-negative integers", ratio*100)
		}

	case domain.FieldStation:
		textual := 0
		distinct := make(map[string]struct{})
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, err := cleaning.ParseCount(v); err != nil {
				textual++
			}
			distinct[strings.ToLower(v)] = struct{}{}
		}
		if ratio := float64(textual) / float64(len(values)); ratio >= 0.8 && len(distinct) >= 2 {
			return true, fmt.Sprintf("%.0f%% of sampled values are non-numeric identifiers", ratio*100)
		}
	}

	return false, ""
}

// Decide gates on the threshold: every field must clear it, otherwise the
// caller falls back to demo mode. Purely a comparison, nothing opaque.
func (d *Detector) Decide(detections map[string]Detection) Decision {
	decision := Decision{Mode: ModeReal, Threshold: d.threshold}
	for _, field := range detectedFields() {
		if detections[field].Confidence < d.threshold {
			decision.FailedFields = append(decision.FailedFields, field)
		}
	}
	sort.Strings(decision.FailedFields)
	if len(decision.FailedFields) > 0 {
		decision.Mode = ModeDemo
	}
	return decision
}

func columnSample(rows [][]string, idx int) []string {
	var out []string
	for _, row := range rows {
		if len(out) >= sampleRows {
			break
		}
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out
}
