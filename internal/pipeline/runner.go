// Package pipeline orchestrates one end-to-end run: discover raw extracts,
// clean and consolidate them, derive headway estimates, and export the
// processed outputs. Per-file and per-row problems are recovered locally
// and surfaced in the run summary; only environmental failures are fatal.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"subtepulse/internal/anomaly"
	"subtepulse/internal/cleaning"
	"subtepulse/internal/config"
	"subtepulse/internal/consolidate"
	"subtepulse/internal/demo"
	"subtepulse/internal/detect"
	apperrors "subtepulse/internal/errors"
	"subtepulse/internal/exporter"
	"subtepulse/internal/forecast"
	"subtepulse/internal/headway"
	"subtepulse/internal/infrastructure"
	"subtepulse/internal/ingest"
	"subtepulse/internal/schema"
	"subtepulse/internal/summary"
	"subtepulse/pkg/contracts/domain"
)

// Options carries the optional observability hooks.
type Options struct {
	Tracer  trace.Tracer
	Metrics *infrastructure.PipelineMetrics
}

// Runner executes pipeline runs. Safe for sequential reuse; each Run is
// independent and deterministic for a given raw-directory state.
type Runner struct {
	logger  *slog.Logger
	cfg     *config.Config
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics

	discovery    *ingest.Discovery
	normalizer   *schema.Normalizer
	detector     *detect.Detector
	cleaner      *cleaning.Cleaner
	consolidator *consolidate.Consolidator
	estimator    *headway.Estimator
	anomalies    *anomaly.Detector
	generator    *demo.Generator
	writer       *exporter.Writer
	validRange   domain.PeriodRange
}

// NewRunner wires a runner from configuration.
func NewRunner(logger *slog.Logger, cfg *config.Config, opts Options) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	validRange, err := cfg.ValidRange()
	if err != nil {
		return nil, apperrors.NewConfigError("invalid period range", err)
	}

	aliases := cfg.AliasTable()

	return &Runner{
		logger:       logger,
		cfg:          cfg,
		tracer:       opts.Tracer,
		metrics:      opts.Metrics,
		discovery:    ingest.NewDiscovery(logger, cfg.Paths.RawDir),
		normalizer:   schema.NewNormalizer(logger, aliases),
		detector:     detect.NewDetector(logger, aliases, cfg.Pipeline.ConfidenceThreshold),
		cleaner:      cleaning.NewCleaner(logger, validRange),
		consolidator: consolidate.NewConsolidator(logger),
		estimator: headway.NewEstimator(logger, headway.Config{
			OperatingMinutesPerDay: cfg.Pipeline.OperatingMinutesPerDay,
			DefaultHeadwayMin:      cfg.Pipeline.DefaultHeadwayMin,
			SignalTolerance:        cfg.Pipeline.SignalTolerance,
		}),
		anomalies: anomaly.NewDetector(logger, anomaly.Config{
			Window:     cfg.Pipeline.AnomalyWindow,
			ZThreshold: cfg.Pipeline.AnomalyZThreshold,
		}),
		generator: demo.NewGenerator(logger, demo.Config{
			Seed:                   cfg.Pipeline.DemoSeed,
			Range:                  validRange,
			OperatingMinutesPerDay: cfg.Pipeline.OperatingMinutesPerDay,
		}),
		writer:     exporter.NewWriter(logger, cfg.Paths.ProcessedDir),
		validRange: validRange,
	}, nil
}

// fileResult is the outcome of processing one raw file. Exactly one of the
// payload slices is populated, matching the file kind.
type fileResult struct {
	report  domain.FileReport
	records []domain.CanonicalRecord
	monthly []domain.DispatchMonthly
	daily   []domain.DispatchDaily
}

// Run executes one pipeline run and writes every output file. The returned
// summary is also persisted to the processed directory.
func (r *Runner) Run(ctx context.Context) (*domain.RunSummary, error) {
	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "pipeline.run")
		defer span.End()
	}

	run := &domain.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	logger := r.logger.With(slog.String("run_id", run.RunID))
	logger.InfoContext(ctx, "pipeline run started",
		slog.String("raw_dir", r.cfg.Paths.RawDir))

	if r.metrics != nil {
		r.metrics.RunsTotal.Add(ctx, 1)
		defer func() {
			r.metrics.RunDuration.Record(ctx, time.Since(run.StartedAt).Seconds())
		}()
	}

	files, err := r.discovery.FindRawFiles()
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, apperrors.NewStorageError("raw file discovery failed", err)
	}

	results := r.processFiles(ctx, logger, files)

	var batches []consolidate.FileBatch
	var monthly []domain.DispatchMonthly
	var daily []domain.DispatchDaily
	for _, res := range results {
		run.Files = append(run.Files, res.report)
		if res.report.Skipped {
			if r.metrics != nil {
				r.metrics.FilesSkipped.Add(ctx, 1)
			}
			continue
		}
		if r.metrics != nil {
			r.metrics.FilesProcessed.Add(ctx, 1)
			r.metrics.RowsDropped.Add(ctx, int64(res.report.RowsDropped))
			r.metrics.RowsDeduped.Add(ctx, int64(res.report.RowsDeduped))
		}
		if len(res.records) > 0 {
			batches = append(batches, consolidate.FileBatch{
				File:    res.report.File,
				Records: res.records,
			})
		}
		monthly = append(monthly, res.monthly...)
		daily = append(daily, res.daily...)
	}

	ds, conflicts := r.consolidator.Consolidate(batches)
	run.Conflicts = conflicts
	if r.metrics != nil && len(conflicts) > 0 {
		r.metrics.Conflicts.Add(ctx, int64(len(conflicts)))
	}
	for _, c := range conflicts {
		run.Warnings = append(run.Warnings, fmt.Sprintf(
			"conflicting passenger counts for (%s, %s, %s): kept %d from %s, discarded %d from %s",
			c.Period, c.Line, c.Station, c.KeptCount, c.KeptFile, c.DiscardedCount, c.DiscardedFile))
	}

	// No usable real data means the run still produces a complete, clearly
	// tagged output set rather than failing.
	if err := ds.Validate(r.validRange); err != nil || len(ds.Records) == 0 {
		if err != nil {
			logger.WarnContext(ctx, "consolidated dataset failed validation",
				slog.String("error", err.Error()))
		}
		ds, monthly = r.generator.Dataset()
		daily = nil
		run.Warnings = append(run.Warnings,
			"no valid real data survived cleaning; falling back to synthetic demo dataset")
		if r.metrics != nil {
			r.metrics.DemoFallbacks.Add(ctx, 1)
		}
	}
	run.Provenance = ds.Provenance
	run.RecordCount = len(ds.Records)

	for _, a := range r.anomalies.Detect(ds) {
		run.Warnings = append(run.Warnings, fmt.Sprintf(
			"passenger count %s for (%s, %s, %s): %d (z=%.1f)",
			a.Kind, a.Period, a.Line, a.Station, a.PassengerCount, a.ZScore))
	}

	estimates, signalWarnings := r.estimator.Estimate(monthly, daily, datasetKeys(ds))
	run.Warnings = append(run.Warnings, signalWarnings...)
	run.Warnings = append(run.Warnings, headway.CheckRanges(estimates,
		r.cfg.Pipeline.HeadwayPlausibleMin, r.cfg.Pipeline.HeadwayPlausibleMax)...)
	run.Estimates = len(estimates)

	stats := summary.Build(ds, estimates, 10)
	points := forecast.Forecast(ds, forecast.Config{Horizon: r.cfg.Pipeline.ForecastHorizon})

	// FinishedAt is fixed before export so the persisted run summary and
	// the returned one agree.
	run.FinishedAt = time.Now().UTC()
	if err := r.export(run, ds, estimates, stats, points); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if r.tracer != nil {
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("pipeline.records", run.RecordCount),
			attribute.Int("pipeline.estimates", run.Estimates),
			attribute.String("pipeline.provenance", string(run.Provenance)),
		)
	}
	logger.InfoContext(ctx, "pipeline run finished",
		slog.Int("records", run.RecordCount),
		slog.Int("estimates", run.Estimates),
		slog.Int("warnings", len(run.Warnings)),
		slog.String("provenance", string(run.Provenance)),
		slog.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))

	return run, nil
}

// processFiles cleans every discovered file, fanning out across a bounded
// worker group. Results are collected by input index so the output order
// matches the lexically sorted discovery order regardless of scheduling.
func (r *Runner) processFiles(ctx context.Context, logger *slog.Logger, files []ingest.RawFile) []fileResult {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Pipeline.Parallelism, 1))

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = r.processFile(ctx, logger, file)
			return nil
		})
	}
	// Workers never return errors; per-file failures land in the reports.
	_ = g.Wait()

	return results
}

// processFile reads and cleans one raw file. Any failure skips the file
// with a recorded reason instead of aborting the run.
func (r *Runner) processFile(ctx context.Context, logger *slog.Logger, file ingest.RawFile) fileResult {
	if r.tracer != nil {
		var span trace.Span
		_, span = r.tracer.Start(ctx, "pipeline.process_file",
			trace.WithAttributes(attribute.String("file", file.Name)))
		defer span.End()
	}

	res := fileResult{report: domain.FileReport{File: file.Name}}

	table, err := ingest.ReadTable(file.Path)
	if err != nil {
		logger.Warn("skipping unreadable file",
			slog.String("file", file.Name), slog.String("error", err.Error()))
		res.report.Skipped = true
		res.report.SkipReason = err.Error()
		return res
	}
	res.report.RowsIn = len(table.Rows)

	switch file.Kind {
	case ingest.KindDispatchMonthly:
		res.monthly, res.report.RowsDropped = headway.ParseMonthly(logger, file.Name, table.Headers, table.Rows)
		res.report.RowsOut = len(res.monthly)

	case ingest.KindDispatchDaily:
		res.daily, res.report.RowsDropped = headway.ParseDaily(logger, file.Name, table.Headers, table.Rows)
		res.report.RowsOut = len(res.daily)

	default:
		mapping, err := r.normalizer.MapColumns(file.Name, table.Headers)
		if err == nil && len(mapping.Unresolved) > 0 {
			mapping, err = r.resolveByContent(mapping, table)
		}
		if err != nil {
			logger.Warn("skipping file with unresolvable schema",
				slog.String("file", file.Name), slog.String("error", err.Error()))
			res.report.Skipped = true
			res.report.SkipReason = err.Error()
			return res
		}
		res.records, res.report = r.cleaner.CleanFile(mapping, table.RawRecords())
	}

	return res
}

// resolveByContent fills alias-unresolved fields from the content-based
// column detector. A field the detector cannot place with enough confidence
// leaves the file unusable.
func (r *Runner) resolveByContent(mapping domain.ColumnMapping, table *ingest.Table) (domain.ColumnMapping, error) {
	detections := r.detector.Detect(table.Headers, table.Rows)
	decision := r.detector.Decide(detections)

	claimed := make(map[string]bool, len(mapping.Columns))
	for _, col := range mapping.Columns {
		claimed[col] = true
	}

	var unresolved []string
	for _, field := range mapping.Unresolved {
		det := detections[field]
		if det.Confidence >= decision.Threshold && det.Column != "" && !claimed[det.Column] {
			r.logger.Info("column resolved by content detection",
				slog.String("file", mapping.SourceFile),
				slog.String("field", field),
				slog.String("column", det.Column),
				slog.Float64("confidence", det.Confidence))
			mapping.Columns[field] = det.Column
			claimed[det.Column] = true
			continue
		}
		unresolved = append(unresolved, field)
	}
	mapping.Unresolved = unresolved

	if len(unresolved) > 0 {
		return mapping, apperrors.NewSchemaError(fmt.Sprintf(
			"file %s: could not locate columns for %s",
			mapping.SourceFile, strings.Join(unresolved, ", ")), nil)
	}
	return mapping, nil
}

// export writes every output artifact, recording paths in the run summary.
// The run summary itself is written last so it reflects the final paths.
func (r *Runner) export(run *domain.RunSummary, ds domain.Dataset, estimates []domain.HeadwayEstimate, stats summary.Summary, points []forecast.Point) error {
	var err error
	if run.DatasetPath, err = r.writer.WriteDataset(r.cfg.Paths.DatasetFile, ds); err != nil {
		return err
	}
	if run.HeadwayPath, err = r.writer.WriteHeadways(r.cfg.Paths.HeadwayFile, estimates); err != nil {
		return err
	}
	if run.SummaryPath, err = r.writer.WriteJSON(r.cfg.Paths.SummaryFile, stats); err != nil {
		return err
	}
	if len(points) > 0 {
		if run.ForecastPath, err = r.writer.WriteForecast(r.cfg.Paths.ForecastFile, points); err != nil {
			return err
		}
	}
	if _, err = r.writer.WriteJSON(r.cfg.Paths.RunFile, run); err != nil {
		return err
	}
	return nil
}

// datasetKeys lists the distinct (period, line) pairs in the dataset, so
// every pair gets a headway estimate even without a dispatch signal.
func datasetKeys(ds domain.Dataset) []domain.PeriodLine {
	seen := make(map[domain.PeriodLine]struct{})
	var keys []domain.PeriodLine
	for _, rec := range ds.Records {
		k := domain.PeriodLine{Period: rec.Period, Line: rec.Line}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
