package dnabench

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/himanishpuri/dnabench/pkg/dnabench/matrix"
	"github.com/himanishpuri/dnabench/pkg/dnabench/report"
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
)

// ErrNoStorage is returned by run-history methods on a harness without a
// run store.
var ErrNoStorage = errors.New("no run store configured")

// Report renders the charts for m into outDir and writes summary.json beside
// them.
func (h *Harness) Report(m matrix.Reader, outDir string) ([]string, []report.Summary, error) {
	paths, err := report.Render(m, outDir)
	if err != nil {
		return paths, nil, err
	}
	summaries := report.Summarize(m)
	if err := report.WriteJSON(filepath.Join(outDir, report.SummaryFile), summaries); err != nil {
		return paths, summaries, err
	}
	h.log.Infof("Wrote %d charts and %s to %s", len(paths), report.SummaryFile, outDir)
	return paths, summaries, nil
}

// MatrixFromEvaluations rebuilds a result matrix from stored evaluations.
// Rows come out in the order the evaluations were saved.
func MatrixFromEvaluations(durations []int, evals []storage.Evaluation) (*matrix.Matrix, error) {
	m := matrix.New(durations)
	for i := range evals {
		e := &evals[i]
		if err := m.Record(e.SongID, e.Duration, e.Cell()); err != nil {
			return nil, fmt.Errorf("evaluation of %s: %w", e.ClipPath, err)
		}
	}
	return m, nil
}

func (h *Harness) Runs(limit int) ([]storage.Run, error) {
	if h.storage == nil {
		return nil, ErrNoStorage
	}
	return h.storage.ListRuns(limit)
}

// LoadRun returns a stored run and its rebuilt result matrix.
func (h *Harness) LoadRun(id string) (*storage.Run, *matrix.Matrix, error) {
	if h.storage == nil {
		return nil, nil, ErrNoStorage
	}
	run, err := h.storage.GetRun(id)
	if err != nil {
		return nil, nil, err
	}
	evals, err := h.storage.ListEvaluations(id)
	if err != nil {
		return nil, nil, err
	}
	m, err := MatrixFromEvaluations(run.Durations, evals)
	if err != nil {
		return nil, nil, err
	}
	return run, m, nil
}

func (h *Harness) Evaluations(runID string) ([]storage.Evaluation, error) {
	if h.storage == nil {
		return nil, ErrNoStorage
	}
	return h.storage.ListEvaluations(runID)
}

func (h *Harness) DeleteRun(id string) error {
	if h.storage == nil {
		return ErrNoStorage
	}
	if err := h.storage.DeleteRun(id); err != nil {
		return err
	}
	h.log.Infof("Deleted run %s", id)
	return nil
}
