package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subtepulse/internal/config"
)

// contextKey is a type for context keys.
type contextKey string

// TraceIDContextKey is the key for storing the trace ID in context.
const TraceIDContextKey contextKey = "trace_id"

// NewLogger creates a JSON slog logger from configuration. The returned
// close function releases the log file, if any; callers invoke it during
// shutdown.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLogLevel(cfg.Level),
	}

	var output io.Writer = os.Stdout
	closeFn := func() error { return nil }

	switch strings.ToLower(cfg.Output) {
	case "file":
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		closeFn = file.Close
	case "both":
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = io.MultiWriter(os.Stdout, file)
		closeFn = file.Close
	}

	handler := &traceHandler{Handler: slog.NewJSONHandler(output, opts)}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, closeFn, nil
}

// traceHandler wraps a slog.Handler to inject the trace ID from context.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID := GetTraceID(ctx); traceID != "" {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDContextKey).(string); ok {
		return traceID
	}
	return ""
}

func openLogFile(filePath string) (*os.File, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
	}
	return file, nil
}
