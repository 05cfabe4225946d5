// Package middleware provides the HTTP middleware chain for the read-only
// data API: request IDs, structured logging, panic recovery, rate limiting
// and security headers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"subtepulse/internal/infrastructure"
)

type contextKey string

// RequestIDKey is the context key for the request ID.
const RequestIDKey contextKey = "request-id"

// RequestID generates a unique request ID for each request, honoring an
// incoming X-Request-ID header. This should be the first middleware in the
// chain; the ID doubles as the trace_id in log lines.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = infrastructure.WithTraceID(ctx, requestID)

		// An active span's trace ID wins over the generated one.
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		return reqID
	}
	return infrastructure.GetTraceID(ctx)
}

// StructuredLogger logs request start and completion with slog. Comes after
// RequestID and RealIP in the chain.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			reqLogger := logger
			if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
				reqLogger = logger.With("trace_id", traceID)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger.InfoContext(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			next.ServeHTTP(ww, r)

			reqLogger.InfoContext(ctx, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

// Recoverer recovers from handler panics, logs the stack, and returns an
// RFC 7807 problem response.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "panic recovered",
						"panic", rvr,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)

					w.Header().Set("Content-Type", "application/problem+json")
					w.WriteHeader(http.StatusInternalServerError)
					response := `{"type":"/errors/internal-server-error","title":"Internal Server Error","status":500,"detail":"An unexpected error occurred","trace_id":"` + infrastructure.GetTraceID(ctx) + `"}`
					w.Write([]byte(response))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter bounds the request rate across all clients.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// with the given burst.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Handler implements the rate limiting middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !rl.limiter.Allow() {
			rl.logger.WarnContext(ctx, "rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			w.Header().Set("Content-Type", "application/problem+json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			response := `{"type":"/errors/rate-limit-exceeded","title":"Too Many Requests","status":429,"detail":"Rate limit exceeded. Please retry after 60 seconds","trace_id":"` + infrastructure.GetTraceID(ctx) + `"}`
			w.Write([]byte(response))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders adds the standard security-related headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Compress provides response compression using Chi's implementation.
func Compress(level int) func(next http.Handler) http.Handler {
	return middleware.Compress(level)
}

// RealIP extracts the real client IP using Chi's implementation.
func RealIP(next http.Handler) http.Handler {
	return middleware.RealIP(next)
}
