package http

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	processedDir string
	runFile      string
	startedAt    time.Time
}

// NewHealthHandler creates a health handler. Readiness reports whether a
// pipeline run has produced outputs yet.
func NewHealthHandler(processedDir, runFile string) *HealthHandler {
	return &HealthHandler{
		processedDir: processedDir,
		runFile:      runFile,
		startedAt:    time.Now().UTC(),
	}
}

// Routes returns the health routes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/healthz", h.Liveness)
	r.Get("/readyz", h.Readiness)
	return r
}

type healthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptime_seconds"`
	HasData bool   `json:"has_data"`
	LastRun string `json:"last_run_file,omitempty"`
}

// Liveness handles GET /healthz.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:  "ok",
		UptimeS: int64(time.Since(h.startedAt).Seconds()),
	})
}

// Readiness handles GET /readyz. Ready means a run summary exists; the API
// is read-only, so without outputs there is nothing to serve.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.processedDir, h.runFile)
	resp := healthResponse{
		Status:  "ok",
		UptimeS: int64(time.Since(h.startedAt).Seconds()),
	}
	if _, err := os.Stat(path); err == nil {
		resp.HasData = true
		resp.LastRun = path
	} else {
		resp.Status = "no data"
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
