// Command headway derives headway estimates from dispatch extracts without
// running the full pipeline, for spot-checking a single month's files.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"subtepulse/internal/config"
	"subtepulse/internal/exporter"
	"subtepulse/internal/headway"
	"subtepulse/internal/infrastructure"
	"subtepulse/internal/ingest"
	"subtepulse/pkg/contracts/domain"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to the YAML configuration file")
	monthlyFile := flag.String("monthly", "", "monthly dispatch extract (csv or xlsx)")
	dailyFile := flag.String("daily", "", "daily dispatch extract (csv or xlsx)")
	outFile := flag.String("out", "", "write estimates to this CSV instead of stdout")
	flag.Parse()

	if *monthlyFile == "" && *dailyFile == "" {
		fmt.Fprintln(os.Stderr, "at least one of -monthly or -daily is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, cleanup, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	var monthly []domain.DispatchMonthly
	var daily []domain.DispatchDaily

	if *monthlyFile != "" {
		table, err := ingest.ReadTable(*monthlyFile)
		if err != nil {
			logger.Error("failed to read monthly extract", slog.String("error", err.Error()))
			os.Exit(1)
		}
		var dropped int
		monthly, dropped = headway.ParseMonthly(logger, table.File, table.Headers, table.Rows)
		if dropped > 0 {
			logger.Warn("dropped monthly rows", slog.Int("dropped", dropped))
		}
	}

	if *dailyFile != "" {
		table, err := ingest.ReadTable(*dailyFile)
		if err != nil {
			logger.Error("failed to read daily extract", slog.String("error", err.Error()))
			os.Exit(1)
		}
		var dropped int
		daily, dropped = headway.ParseDaily(logger, table.File, table.Headers, table.Rows)
		if dropped > 0 {
			logger.Warn("dropped daily rows", slog.Int("dropped", dropped))
		}
	}

	estimator := headway.NewEstimator(logger, headway.Config{
		OperatingMinutesPerDay: cfg.Pipeline.OperatingMinutesPerDay,
		DefaultHeadwayMin:      cfg.Pipeline.DefaultHeadwayMin,
		SignalTolerance:        cfg.Pipeline.SignalTolerance,
	})

	estimates, warnings := estimator.Estimate(monthly, daily, nil)
	warnings = append(warnings, headway.CheckRanges(estimates,
		cfg.Pipeline.HeadwayPlausibleMin, cfg.Pipeline.HeadwayPlausibleMax)...)

	if *outFile != "" {
		writer := exporter.NewWriter(logger, ".")
		if _, err := writer.WriteHeadways(*outFile, estimates); err != nil {
			logger.Error("failed to write estimates", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		for _, est := range estimates {
			fmt.Printf("%s  line %s  %6.2f min  %s\n",
				est.Period, est.Line, est.AvgHeadwayMin, est.Source)
		}
	}

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}
