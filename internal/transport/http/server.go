package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subtepulse/internal/config"
	"subtepulse/internal/infrastructure"
	"subtepulse/internal/middleware"
	"subtepulse/internal/services"
)

// Server is the read-only API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer assembles the router and middleware chain.
func NewServer(cfg *config.Config, logger *slog.Logger, service *services.DataService, providers *infrastructure.OTelProviders) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Compress(5))
	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
		r.Use(limiter.Handler)
	}

	dataHandler := NewDataHandler(service, logger)
	healthHandler := NewHealthHandler(cfg.Paths.ProcessedDir, cfg.Paths.RunFile)

	r.Mount("/api/data", dataHandler.Routes())
	r.Mount("/", healthHandler.Routes())

	if providers != nil && providers.PrometheusHTTP != nil {
		r.Method(http.MethodGet, "/metrics", providers.PrometheusHTTP)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      r,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		logger: logger,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("api server shutting down")
	return s.httpServer.Shutdown(ctx)
}
