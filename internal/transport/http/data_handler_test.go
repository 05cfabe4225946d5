package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtepulse/internal/services"
)

func newTestHandler(t *testing.T, artifacts map[string]string) *DataHandler {
	t.Helper()
	dir := t.TempDir()
	for name, content := range artifacts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := services.NewDataService(logger, dir, services.OutputPaths{
		DatasetFile: "ridership_clean.csv",
		HeadwayFile: "headway_estimates.csv",
		SummaryFile: "summary.json",
		RunFile:     "run_summary.json",
	}, time.Minute)

	return NewDataHandler(service, logger)
}

const datasetCSV = "period,line,station,passenger_count,dispatched_trains,provenance\n" +
	"2024-01,A,Congreso,1000,,REAL\n" +
	"2024-01,B,Callao,800,,REAL\n" +
	"2024-02,A,Lima,500,,REAL\n"

func TestGetDataset(t *testing.T) {
	h := newTestHandler(t, map[string]string{"ridership_clean.csv": datasetCSV})

	req := httptest.NewRequest(http.MethodGet, "/dataset", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count   int `json:"count"`
		Records []struct {
			Period  string `json:"period"`
			Line    string `json:"line"`
			Station string `json:"station"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "2024-01", resp.Records[0].Period)
	assert.Equal(t, "Congreso", resp.Records[0].Station)
}

func TestGetDatasetFilters(t *testing.T) {
	h := newTestHandler(t, map[string]string{"ridership_clean.csv": datasetCSV})

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "by line", query: "?line=A", want: 2},
		{name: "by normalized line", query: "?line=linea%20b", want: 1},
		{name: "by period", query: "?period=2024-02", want: 1},
		{name: "line and period", query: "?line=A&period=2024-01", want: 1},
		{name: "no match", query: "?line=H", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/dataset"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var resp struct {
				Count int `json:"count"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Count)
		})
	}
}

func TestGetDatasetBadFilters(t *testing.T) {
	h := newTestHandler(t, map[string]string{"ridership_clean.csv": datasetCSV})

	for _, query := range []string{"?line=Z", "?period=sometime"} {
		req := httptest.NewRequest(http.MethodGet, "/dataset"+query, nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %s", query)
	}
}

func TestGetDatasetMissingArtifact(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/dataset", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHeadways(t *testing.T) {
	h := newTestHandler(t, map[string]string{
		"headway_estimates.csv": "period,line,avg_headway_min,source\n" +
			"2024-09,A,3.50,DERIVED_MONTHLY\n",
	})

	req := httptest.NewRequest(http.MethodGet, "/headways", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count     int `json:"count"`
		Estimates []struct {
			Period        string  `json:"period"`
			Line          string  `json:"line"`
			AvgHeadwayMin float64 `json:"avg_headway_min"`
			Source        string  `json:"source"`
		} `json:"estimates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "2024-09", resp.Estimates[0].Period)
	assert.Equal(t, 3.5, resp.Estimates[0].AvgHeadwayMin)
	assert.Equal(t, "DERIVED_MONTHLY", resp.Estimates[0].Source)
}

func TestGetSummary(t *testing.T) {
	h := newTestHandler(t, map[string]string{
		"summary.json": `{"provenance":"DEMO","period_start":"2024-01","period_end":"2024-03","total_passengers":100,"by_line":[],"top_stations":[]}`,
	})

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Provenance string `json:"provenance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "DEMO", resp.Provenance)
}

func TestGetLastRun(t *testing.T) {
	h := newTestHandler(t, map[string]string{
		"run_summary.json": `{"run_id":"r1","started_at":"2024-09-01T10:00:00Z","finished_at":"2024-09-01T10:00:05Z","record_count":5,"estimates":3,"provenance":"REAL"}`,
	})

	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		RunID       string `json:"run_id"`
		RecordCount int    `json:"record_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "r1", resp.RunID)
	assert.Equal(t, 5, resp.RecordCount)
}
