// Package schema maps the arbitrary column names found in raw municipal
// extracts onto the pipeline's canonical field set.
package schema

import (
	"fmt"
	"log/slog"
	"strings"

	apperrors "subtepulse/internal/errors"
	"subtepulse/pkg/contracts/domain"
)

// Normalizer produces a ColumnMapping for a raw file's header by matching
// columns against a configurable alias table. Matching is pure: headers in,
// mapping out, no side effects.
type Normalizer struct {
	logger  *slog.Logger
	aliases map[string][]string
}

// NewNormalizer creates a normalizer with the given alias table.
func NewNormalizer(logger *slog.Logger, aliases map[string][]string) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger, aliases: aliases}
}

// MapColumns matches the file's raw headers against the alias table.
// Exact alias matches win over substring matches, and earlier raw columns
// win ties so the result is deterministic for a given header order.
// More than one unresolved required field makes the file unusable.
func (n *Normalizer) MapColumns(file string, headers []string) (domain.ColumnMapping, error) {
	mapping := domain.ColumnMapping{
		SourceFile: file,
		Columns:    make(map[string]string),
	}

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	claimed := make(map[int]bool, len(headers))
	fields := append(domain.RequiredFields(), domain.FieldDispatchedTrains)

	for _, field := range fields {
		if idx, ok := n.matchField(field, normalized, claimed); ok {
			mapping.Columns[field] = headers[idx]
			claimed[idx] = true
		}
	}

	for _, field := range domain.RequiredFields() {
		if !mapping.Resolved(field) {
			mapping.Unresolved = append(mapping.Unresolved, field)
		}
	}

	if len(mapping.Unresolved) > 1 {
		return mapping, apperrors.NewSchemaError(
			fmt.Sprintf("file %s: %d required fields unresolved (%s)",
				file, len(mapping.Unresolved), strings.Join(mapping.Unresolved, ", ")),
			nil,
		)
	}

	n.logger.Debug("mapped columns",
		slog.String("file", file),
		slog.Int("resolved", len(mapping.Columns)),
		slog.Any("unresolved", mapping.Unresolved))

	return mapping, nil
}

// matchField finds the best unclaimed header for a canonical field: first
// an exact alias match, then a substring match, scanning headers in order.
func (n *Normalizer) matchField(field string, normalized []string, claimed map[int]bool) (int, bool) {
	aliases := n.aliases[field]

	for _, alias := range aliases {
		want := NormalizeHeader(alias)
		for i, header := range normalized {
			if !claimed[i] && header == want {
				return i, true
			}
		}
	}

	for _, alias := range aliases {
		want := NormalizeHeader(alias)
		for i, header := range normalized {
			if !claimed[i] && strings.Contains(header, want) {
				return i, true
			}
		}
	}

	return 0, false
}

// accentReplacer folds the accented vowels the Spanish extracts use.
var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
)

// NormalizeHeader standardizes a raw column name for comparison: trimmed,
// lower-cased, accents folded, separators collapsed to underscores.
func NormalizeHeader(h string) string {
	s := strings.ToLower(strings.TrimSpace(h))
	s = accentReplacer.Replace(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
