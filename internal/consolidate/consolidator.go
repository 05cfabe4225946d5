// Package consolidate merges per-file cleaned batches into one canonical
// dataset with cross-file deduplication and conflict flagging.
package consolidate

import (
	"log/slog"
	"sort"

	"subtepulse/pkg/contracts/domain"
)

// FileBatch is one cleaned per-file record batch awaiting consolidation.
type FileBatch struct {
	File    string
	Records []domain.CanonicalRecord
}

// Consolidator concatenates cleaned batches into one Dataset. A key seen in
// two files keeps the first-seen value; a differing later value is flagged
// as a conflict instead of silently overwriting, since overwrites would
// hide data-quality regressions at the source.
type Consolidator struct {
	logger *slog.Logger
}

// NewConsolidator creates a consolidator.
func NewConsolidator(logger *slog.Logger) *Consolidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{logger: logger}
}

// Consolidate merges the batches. Batches are sorted by filename before the
// first-seen rule is applied, so the output is identical for any discovery
// order: the tie-break is pinned to filename lexical order.
func (c *Consolidator) Consolidate(batches []FileBatch) (domain.Dataset, []domain.Conflict) {
	sorted := make([]FileBatch, len(batches))
	copy(sorted, batches)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].File < sorted[j].File
	})

	type kept struct {
		file  string
		count int64
	}

	seen := make(map[domain.RecordKey]kept)
	var records []domain.CanonicalRecord
	var conflicts []domain.Conflict

	for _, batch := range sorted {
		for _, rec := range batch.Records {
			key := rec.Key()
			prev, dup := seen[key]
			if !dup {
				seen[key] = kept{file: batch.File, count: rec.PassengerCount}
				records = append(records, rec)
				continue
			}
			if prev.count != rec.PassengerCount {
				conflicts = append(conflicts, domain.Conflict{
					Key:            key,
					Period:         rec.Period.String(),
					Line:           rec.Line,
					Station:        rec.Station,
					KeptFile:       prev.file,
					KeptCount:      prev.count,
					DiscardedFile:  batch.File,
					DiscardedCount: rec.PassengerCount,
				})
			}
		}
	}

	if len(conflicts) > 0 {
		c.logger.Warn("cross-file record conflicts detected",
			slog.Int("conflicts", len(conflicts)))
	}

	c.logger.Info("consolidated dataset",
		slog.Int("files", len(sorted)),
		slog.Int("records", len(records)))

	return domain.Dataset{Records: records, Provenance: domain.ProvenanceReal}, conflicts
}
