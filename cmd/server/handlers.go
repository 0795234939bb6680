package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/dnabench/pkg/dnabench"
	"github.com/himanishpuri/dnabench/pkg/dnabench/matrix"
	"github.com/himanishpuri/dnabench/pkg/dnabench/report"
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
	"github.com/himanishpuri/dnabench/pkg/logger"
	"github.com/himanishpuri/dnabench/pkg/models"
)

// RunSource is the part of the harness the server reads from.
type RunSource interface {
	Runs(limit int) ([]storage.Run, error)
	LoadRun(id string) (*storage.Run, *matrix.Matrix, error)
	Evaluations(runID string) ([]storage.Evaluation, error)
	DeleteRun(id string) error
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	runs   RunSource
	config *ServerConfig
	log    dnabench.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr           string
	DBPath         string
	ResultsDir     string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(runs RunSource, config *ServerConfig) *Server {
	return &Server{
		runs:   runs,
		config: config,
		log:    logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondStoreError maps run store errors to HTTP statuses.
func (s *Server) respondStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, storage.ErrRunNotFound) {
		s.respondError(w, http.StatusNotFound, "Run not found: "+id)
		return
	}
	s.log.Errorf("Run store error for %s: %v", id, err)
	s.respondError(w, http.StatusInternalServerError, "Failed to read run store")
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "dnabench results API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"runs":       "GET /api/runs",
			"getRun":     "GET /api/runs/{id}",
			"runSummary": "GET /api/runs/{id}/summary",
			"deleteRun":  "DELETE /api/runs/{id}",
			"charts":     "GET /results/",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleListRuns handles GET /api/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.runs.Runs(limit)
	if err != nil {
		s.log.Errorf("Failed to list runs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i := range runs {
		dtos[i] = newRunDTO(&runs[i])
	}
	s.respondJSON(w, http.StatusOK, ListRunsResponse{Runs: dtos, Count: len(dtos)})
}

// handleGetRun handles GET /api/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request, id string) {
	run, _, err := s.runs.LoadRun(id)
	if err != nil {
		s.respondStoreError(w, id, err)
		return
	}
	evals, err := s.runs.Evaluations(id)
	if err != nil {
		s.respondStoreError(w, id, err)
		return
	}
	if evals == nil {
		evals = []storage.Evaluation{}
	}
	s.respondJSON(w, http.StatusOK, RunDetailResponse{Run: newRunDTO(run), Evaluations: evals})
}

// handleRunSummary handles GET /api/runs/{id}/summary
func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request, id string) {
	_, m, err := s.runs.LoadRun(id)
	if err != nil {
		s.respondStoreError(w, id, err)
		return
	}

	cells := make([][]models.Cell, m.RowCount())
	for row := range cells {
		cells[row] = make([]models.Cell, m.ColumnCount())
		for col := range cells[row] {
			cells[row][col] = m.Cell(row, col)
		}
	}

	s.respondJSON(w, http.StatusOK, SummaryResponse{
		RunID:     id,
		Songs:     m.Songs(),
		Durations: m.Durations(),
		Summaries: report.Summarize(m),
		Cells:     cells,
		Charts:    s.renderedCharts(id),
	})
}

// renderedCharts lists the chart URLs of the report rendered for a run under
// <ResultsDir>/<id>, as recorded in its summary.json.
func (s *Server) renderedCharts(id string) []string {
	if s.config.ResultsDir == "" {
		return nil
	}
	summaries, err := report.ReadJSON(filepath.Join(s.config.ResultsDir, id, report.SummaryFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warnf("Ignoring report for run %s: %v", id, err)
		}
		return nil
	}

	var charts []string
	for _, sum := range summaries {
		for _, metric := range report.Metrics {
			charts = append(charts, "/results/"+url.PathEscape(id)+"/"+report.ChartName(metric, sum.Duration))
		}
	}
	return charts
}

// handleDeleteRun handles DELETE /api/runs/{id}
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.runs.DeleteRun(id); err != nil {
		s.respondStoreError(w, id, err)
		return
	}
	s.log.Infof("Deleted run %s", id)
	s.respondJSON(w, http.StatusOK, DeleteRunResponse{Message: "Run deleted successfully", ID: id})
}

// handleRuns dispatches /api/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleListRuns(w, r)
}

// handleRun dispatches /api/runs/{id} and /api/runs/{id}/summary
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" || len(parts) > 2 {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 2 {
		if parts[1] != "summary" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.handleRunSummary(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetRun(w, r, id)
	case http.MethodDelete:
		s.handleDeleteRun(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
