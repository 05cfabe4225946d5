// Command server runs the read-only API over the processed pipeline
// outputs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subtepulse/internal/config"
	"subtepulse/internal/infrastructure"
	"subtepulse/internal/services"
	transporthttp "subtepulse/internal/transport/http"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

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
	slog.SetDefault(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
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

	service := services.NewDataService(logger, cfg.Paths.ProcessedDir, services.OutputPaths{
		DatasetFile: cfg.Paths.DatasetFile,
		HeadwayFile: cfg.Paths.HeadwayFile,
		SummaryFile: cfg.Paths.SummaryFile,
		RunFile:     cfg.Paths.RunFile,
	}, cfg.Server.CacheTTL)

	server := transporthttp.NewServer(cfg, logger, service, providers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}
