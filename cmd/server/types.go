package main

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/dnabench/pkg/dnabench/report"
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
	"github.com/himanishpuri/dnabench/pkg/models"
)

// RunDTO represents a run in API responses
type RunDTO struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	Age           string     `json:"age"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Seed          int64      `json:"seed"`
	Padding       int        `json:"padding"`
	Durations     []int      `json:"durations"`
	ClipDir       string     `json:"clip_dir"`
	EngineCommand []string   `json:"engine_command"`
	Error         string     `json:"error,omitempty"`
}

func newRunDTO(r *storage.Run) RunDTO {
	return RunDTO{
		ID:            r.ID,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		Age:           humanize.Time(r.CreatedAt),
		FinishedAt:    r.FinishedAt,
		Seed:          r.Seed,
		Padding:       r.Padding,
		Durations:     r.Durations,
		ClipDir:       r.ClipDir,
		EngineCommand: r.EngineCommand,
		Error:         r.Error,
	}
}

// ListRunsResponse is the response for GET /api/runs
type ListRunsResponse struct {
	Runs  []RunDTO `json:"runs"`
	Count int      `json:"count"`
}

// RunDetailResponse is the response for GET /api/runs/{id}
type RunDetailResponse struct {
	Run         RunDTO               `json:"run"`
	Evaluations []storage.Evaluation `json:"evaluations"`
}

// SummaryResponse is the response for GET /api/runs/{id}/summary.
// Cells is indexed [row][column], rows following Songs and columns Durations.
// Charts is set once a report has been rendered for the run.
type SummaryResponse struct {
	RunID     string           `json:"run_id"`
	Songs     []string         `json:"songs"`
	Durations []int            `json:"durations"`
	Summaries []report.Summary `json:"summaries"`
	Cells     [][]models.Cell  `json:"cells"`
	Charts    []string         `json:"charts,omitempty"`
}

// DeleteRunResponse is the response for DELETE /api/runs/{id}
type DeleteRunResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
