package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "subtepulse"
	ServiceVersion = "1.0.0"
	MeterName      = "subtepulse"
)

// OTelConfig holds OpenTelemetry configuration.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the initialized OpenTelemetry providers.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics for the pipeline and server.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing && cfg.TraceExporter == "stdout" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetTracerProvider(tp)
	}

	if cfg.EnableMetrics {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		providers.PrometheusHTTP = promhttp.Handler()
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	}

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// PipelineMetrics holds the pipeline's business metrics.
type PipelineMetrics struct {
	RunsTotal      metric.Int64Counter
	RunDuration    metric.Float64Histogram
	FilesProcessed metric.Int64Counter
	FilesSkipped   metric.Int64Counter
	RowsDropped    metric.Int64Counter
	RowsDeduped    metric.Int64Counter
	Conflicts      metric.Int64Counter
	DemoFallbacks  metric.Int64Counter
}

// CreatePipelineMetrics creates the pipeline metric instruments.
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	runsTotal, err := meter.Int64Counter("pipeline_runs_total",
		metric.WithDescription("Total number of pipeline runs"))
	if err != nil {
		return nil, err
	}
	runDuration, err := meter.Float64Histogram("pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	filesProcessed, err := meter.Int64Counter("pipeline_files_processed_total",
		metric.WithDescription("Total number of source files processed"))
	if err != nil {
		return nil, err
	}
	filesSkipped, err := meter.Int64Counter("pipeline_files_skipped_total",
		metric.WithDescription("Total number of source files skipped"))
	if err != nil {
		return nil, err
	}
	rowsDropped, err := meter.Int64Counter("pipeline_rows_dropped_total",
		metric.WithDescription("Total number of invalid rows dropped"))
	if err != nil {
		return nil, err
	}
	rowsDeduped, err := meter.Int64Counter("pipeline_rows_deduped_total",
		metric.WithDescription("Total number of duplicate rows removed"))
	if err != nil {
		return nil, err
	}
	conflicts, err := meter.Int64Counter("pipeline_conflicts_total",
		metric.WithDescription("Total number of cross-file record conflicts"))
	if err != nil {
		return nil, err
	}
	demoFallbacks, err := meter.Int64Counter("pipeline_demo_fallbacks_total",
		metric.WithDescription("Total number of runs that fell back to demo data"))
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RunsTotal:      runsTotal,
		RunDuration:    runDuration,
		FilesProcessed: filesProcessed,
		FilesSkipped:   filesSkipped,
		RowsDropped:    rowsDropped,
		RowsDeduped:    rowsDeduped,
		Conflicts:      conflicts,
		DemoFallbacks:  demoFallbacks,
	}, nil
}

// Shutdown gracefully shuts down the OpenTelemetry providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}
