// Package http exposes the processed pipeline outputs over a small
// read-only JSON API for dashboard and collaborator use.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "subtepulse/internal/errors"
	"subtepulse/internal/services"
	"subtepulse/pkg/contracts/domain"
)

// DataHandler serves the processed dataset, headway estimates, summary and
// run metadata.
type DataHandler struct {
	service *services.DataService
	logger  *slog.Logger
}

// NewDataHandler creates a data handler.
func NewDataHandler(service *services.DataService, logger *slog.Logger) *DataHandler {
	return &DataHandler{
		service: service,
		logger:  logger.With(slog.String("component", "data_handler")),
	}
}

// Routes returns the data routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/dataset", h.GetDataset)
	r.Get("/headways", h.GetHeadways)
	r.Get("/summary", h.GetSummary)
	r.Get("/run", h.GetLastRun)

	return r
}

// recordResponse is the wire form of one canonical record.
type recordResponse struct {
	Period           domain.Period     `json:"period"`
	Line             domain.LineCode   `json:"line"`
	Station          string            `json:"station"`
	PassengerCount   int64             `json:"passenger_count"`
	DispatchedTrains *int64            `json:"dispatched_trains,omitempty"`
	Provenance       domain.Provenance `json:"provenance"`
}

type datasetResponse struct {
	Count   int              `json:"count"`
	Records []recordResponse `json:"records"`
}

// GetDataset handles GET /api/data/dataset. Optional ?line= and ?period=
// query parameters filter the records.
func (h *DataHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.service.Dataset(ctx)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	lineFilter := r.URL.Query().Get("line")
	var line domain.LineCode
	if lineFilter != "" {
		normalized, err := domain.NormalizeLine(lineFilter)
		if err != nil {
			render.Render(w, r, apperrors.NewWithDetails(
				http.StatusBadRequest, "INVALID_LINE", "unknown line code", lineFilter))
			return
		}
		line = normalized
	}

	periodFilter := r.URL.Query().Get("period")
	var period domain.Period
	if periodFilter != "" {
		parsed, err := domain.ParsePeriod(periodFilter)
		if err != nil {
			render.Render(w, r, apperrors.NewWithDetails(
				http.StatusBadRequest, "INVALID_PERIOD", "unrecognized period format", periodFilter))
			return
		}
		period = parsed
	}

	resp := datasetResponse{Records: []recordResponse{}}
	for _, rec := range records {
		if line != "" && rec.Line != line {
			continue
		}
		if !period.IsZero() && rec.Period != period {
			continue
		}
		resp.Records = append(resp.Records, recordResponse{
			Period:           rec.Period,
			Line:             rec.Line,
			Station:          rec.Station,
			PassengerCount:   rec.PassengerCount,
			DispatchedTrains: rec.DispatchedTrains,
			Provenance:       rec.Provenance,
		})
	}
	resp.Count = len(resp.Records)

	render.JSON(w, r, resp)
}

type headwaysResponse struct {
	Count     int                      `json:"count"`
	Estimates []domain.HeadwayEstimate `json:"estimates"`
}

// GetHeadways handles GET /api/data/headways.
func (h *DataHandler) GetHeadways(w http.ResponseWriter, r *http.Request) {
	estimates, err := h.service.Headways(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, headwaysResponse{Count: len(estimates), Estimates: estimates})
}

// GetSummary handles GET /api/data/summary.
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Summary(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// GetLastRun handles GET /api/data/run.
func (h *DataHandler) GetLastRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.LastRun(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, run)
}

func (h *DataHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apperrors.FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	render.Render(w, r, apiErr)
}
