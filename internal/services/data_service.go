// Package services holds the read-side services behind the HTTP handlers.
// They serve the processed pipeline outputs; nothing here mutates data.
package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bluele/gcache"

	apperrors "subtepulse/internal/errors"
	"subtepulse/internal/ingest"
	"subtepulse/internal/summary"
	"subtepulse/pkg/contracts/domain"
)

// Cache keys, one per processed artifact.
const (
	cacheKeyDataset  = "dataset"
	cacheKeyHeadways = "headways"
	cacheKeySummary  = "summary"
	cacheKeyRun      = "run"
)

// DataService serves the pipeline's processed outputs. Reads go through a
// small TTL cache so a dashboard polling every few seconds does not re-parse
// the CSVs; the TTL bounds staleness after a pipeline re-run.
type DataService struct {
	logger       *slog.Logger
	processedDir string
	paths        OutputPaths
	cache        gcache.Cache
}

// OutputPaths names the artifact files inside the processed directory.
type OutputPaths struct {
	DatasetFile string
	HeadwayFile string
	SummaryFile string
	RunFile     string
}

// NewDataService creates a data service over the processed directory.
func NewDataService(logger *slog.Logger, processedDir string, paths OutputPaths, cacheTTL time.Duration) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &DataService{
		logger:       logger.With(slog.String("component", "data_service")),
		processedDir: processedDir,
		paths:        paths,
		cache: gcache.New(8).
			LRU().
			Expiration(cacheTTL).
			Build(),
	}
}

// Dataset returns the consolidated canonical records.
func (s *DataService) Dataset(ctx context.Context) ([]domain.CanonicalRecord, error) {
	if cached, err := s.cache.Get(cacheKeyDataset); err == nil {
		return cached.([]domain.CanonicalRecord), nil
	}

	table, err := s.readArtifact(ctx, s.paths.DatasetFile)
	if err != nil {
		return nil, err
	}

	records, err := parseDatasetTable(table)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKeyDataset, records)
	return records, nil
}

// Headways returns the headway estimates.
func (s *DataService) Headways(ctx context.Context) ([]domain.HeadwayEstimate, error) {
	if cached, err := s.cache.Get(cacheKeyHeadways); err == nil {
		return cached.([]domain.HeadwayEstimate), nil
	}

	table, err := s.readArtifact(ctx, s.paths.HeadwayFile)
	if err != nil {
		return nil, err
	}

	estimates, err := parseHeadwayTable(table)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKeyHeadways, estimates)
	return estimates, nil
}

// Summary returns the pre-aggregated statistics snapshot.
func (s *DataService) Summary(ctx context.Context) (*summary.Summary, error) {
	if cached, err := s.cache.Get(cacheKeySummary); err == nil {
		return cached.(*summary.Summary), nil
	}

	var stats summary.Summary
	if err := s.readJSON(ctx, s.paths.SummaryFile, &stats); err != nil {
		return nil, err
	}

	s.cache.Set(cacheKeySummary, &stats)
	return &stats, nil
}

// LastRun returns the most recent run summary.
func (s *DataService) LastRun(ctx context.Context) (*domain.RunSummary, error) {
	if cached, err := s.cache.Get(cacheKeyRun); err == nil {
		return cached.(*domain.RunSummary), nil
	}

	var run domain.RunSummary
	if err := s.readJSON(ctx, s.paths.RunFile, &run); err != nil {
		return nil, err
	}

	s.cache.Set(cacheKeyRun, &run)
	return &run, nil
}

// readArtifact reads one CSV artifact, mapping a missing file onto the
// not-found error so handlers answer 404 before the first pipeline run.
func (s *DataService) readArtifact(ctx context.Context, name string) (*ingest.Table, error) {
	path := filepath.Join(s.processedDir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.NewNotFoundError(name)
	}

	table, err := ingest.ReadTable(path)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read processed artifact",
			slog.String("path", path), slog.String("error", err.Error()))
		return nil, err
	}
	return table, nil
}

func (s *DataService) readJSON(ctx context.Context, name string, v interface{}) error {
	path := filepath.Join(s.processedDir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return apperrors.NewNotFoundError(name)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read processed artifact",
			slog.String("path", path), slog.String("error", err.Error()))
		return apperrors.NewStorageError("failed to read artifact", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.NewParsingError("failed to parse artifact", err).
			WithContext("path", path)
	}
	return nil
}

// parseDatasetTable converts the exported dataset CSV back into records.
// Column positions follow the export header order.
func parseDatasetTable(table *ingest.Table) ([]domain.CanonicalRecord, error) {
	records := make([]domain.CanonicalRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(row) < 6 {
			continue
		}
		period, err := domain.ParsePeriod(row[0])
		if err != nil {
			return nil, apperrors.NewParsingError("bad period in dataset artifact", err)
		}
		pax, err := strconv.ParseInt(row[3], 10, 64)
		if err != nil {
			return nil, apperrors.NewParsingError("bad passenger count in dataset artifact", err)
		}
		rec := domain.CanonicalRecord{
			Period:         period,
			Line:           domain.LineCode(row[1]),
			Station:        row[2],
			PassengerCount: pax,
			Provenance:     domain.Provenance(row[5]),
		}
		if row[4] != "" {
			trains, err := strconv.ParseInt(row[4], 10, 64)
			if err != nil {
				return nil, apperrors.NewParsingError("bad dispatched trains in dataset artifact", err)
			}
			rec.DispatchedTrains = &trains
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseHeadwayTable(table *ingest.Table) ([]domain.HeadwayEstimate, error) {
	estimates := make([]domain.HeadwayEstimate, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(row) < 4 {
			continue
		}
		period, err := domain.ParsePeriod(row[0])
		if err != nil {
			return nil, apperrors.NewParsingError("bad period in headway artifact", err)
		}
		avg, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, apperrors.NewParsingError("bad headway value in artifact", err)
		}
		estimates = append(estimates, domain.HeadwayEstimate{
			Period:        period,
			Line:          domain.LineCode(row[1]),
			AvgHeadwayMin: avg,
			Source:        domain.HeadwaySource(row[3]),
		})
	}
	return estimates, nil
}
