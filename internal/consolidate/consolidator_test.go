package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtepulse/pkg/contracts/domain"
)

func record(period, line, station string, pax int64) domain.CanonicalRecord {
	return domain.CanonicalRecord{
		Period:         domain.MustParsePeriod(period),
		Line:           domain.LineCode(line),
		Station:        station,
		PassengerCount: pax,
		Provenance:     domain.ProvenanceReal,
	}
}

func TestConsolidateMergesBatches(t *testing.T) {
	c := NewConsolidator(nil)

	ds, conflicts := c.Consolidate([]FileBatch{
		{File: "a.csv", Records: []domain.CanonicalRecord{
			record("2024-01", "A", "Congreso", 100),
		}},
		{File: "b.csv", Records: []domain.CanonicalRecord{
			record("2024-01", "B", "Callao", 200),
		}},
	})

	assert.Empty(t, conflicts)
	assert.Len(t, ds.Records, 2)
	assert.Equal(t, domain.ProvenanceReal, ds.Provenance)
}

func TestConsolidateKeepsFirstAndFlagsConflict(t *testing.T) {
	c := NewConsolidator(nil)

	ds, conflicts := c.Consolidate([]FileBatch{
		{File: "a.csv", Records: []domain.CanonicalRecord{
			record("2024-01", "A", "Congreso", 100),
		}},
		{File: "b.csv", Records: []domain.CanonicalRecord{
			record("2024-01", "A", "Congreso", 999),
		}},
	})

	require.Len(t, ds.Records, 1)
	assert.Equal(t, int64(100), ds.Records[0].PassengerCount)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "a.csv", conflicts[0].KeptFile)
	assert.Equal(t, int64(100), conflicts[0].KeptCount)
	assert.Equal(t, "b.csv", conflicts[0].DiscardedFile)
	assert.Equal(t, int64(999), conflicts[0].DiscardedCount)
}

func TestConsolidateIdenticalDuplicateIsNotConflict(t *testing.T) {
	c := NewConsolidator(nil)

	ds, conflicts := c.Consolidate([]FileBatch{
		{File: "a.csv", Records: []domain.CanonicalRecord{
			record("2024-01", "A", "Congreso", 100),
		}},
		{File: "b.csv", Records: []domain.CanonicalRecord{
			record("2024-01", "A", "Congreso", 100),
		}},
	})

	assert.Len(t, ds.Records, 1)
	assert.Empty(t, conflicts)
}

func TestConsolidateOrderIndependent(t *testing.T) {
	c := NewConsolidator(nil)

	batchA := FileBatch{File: "a.csv", Records: []domain.CanonicalRecord{
		record("2024-01", "A", "Congreso", 100),
		record("2024-01", "A", "Lima", 10),
	}}
	batchB := FileBatch{File: "b.csv", Records: []domain.CanonicalRecord{
		record("2024-01", "A", "Congreso", 999),
		record("2024-02", "B", "Callao", 20),
	}}

	forward, forwardConflicts := c.Consolidate([]FileBatch{batchA, batchB})
	reversed, reversedConflicts := c.Consolidate([]FileBatch{batchB, batchA})

	// The tie-break is pinned to filename order, so discovery order must
	// not change the outcome.
	assert.Equal(t, forward.Records, reversed.Records)
	assert.Equal(t, forwardConflicts, reversedConflicts)
	require.Len(t, forwardConflicts, 1)
	assert.Equal(t, "a.csv", forwardConflicts[0].KeptFile)
}
