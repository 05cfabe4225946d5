// Command pipeline runs one end-to-end data-quality run: discover raw
// extracts, clean and consolidate them, derive headway estimates, and write
// the processed outputs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"subtepulse/internal/config"
	"subtepulse/internal/infrastructure"
	"subtepulse/internal/pipeline"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to the YAML configuration file")
	rawDir := flag.String("raw", "", "override the raw data directory")
	processedDir := flag.String("out", "", "override the processed output directory")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *rawDir != "" {
		cfg.Paths.RawDir = *rawDir
	}
	if *processedDir != "" {
		cfg.Paths.ProcessedDir = *processedDir
	}

	logger, cleanup, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.SetDefault(logger)

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.TraceExporter = "none"
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		logger.Error("telemetry initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	var metrics *infrastructure.PipelineMetrics
	if providers.Meter != nil {
		if metrics, err = infrastructure.CreatePipelineMetrics(providers.Meter); err != nil {
			logger.Error("metric creation failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	runner, err := pipeline.NewRunner(logger, cfg, pipeline.Options{
		Tracer:  providers.Tracer,
		Metrics: metrics,
	})
	if err != nil {
		logger.Error("pipeline setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	run, err := runner.Run(context.Background())
	if err != nil {
		logger.Error("pipeline run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("run %s: %d records (%s), %d estimates, %d warnings\n",
		run.RunID, run.RecordCount, run.Provenance, run.Estimates, len(run.Warnings))
	for _, w := range run.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
