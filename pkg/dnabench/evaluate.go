package dnabench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/himanishpuri/dnabench/pkg/dnabench/classify"
	"github.com/himanishpuri/dnabench/pkg/dnabench/clip"
	"github.com/himanishpuri/dnabench/pkg/dnabench/matrix"
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
	"github.com/himanishpuri/dnabench/pkg/models"
)

// ClipResult is everything learned about one evaluated clip.
type ClipResult struct {
	Path    string
	Truth   models.GroundTruth
	Result  *models.RecognitionResult
	Verdict models.Verdict
}

// Evaluation is the outcome of one Evaluate call.
type Evaluation struct {
	// RunID is empty when the harness has no run store.
	RunID   string
	Matrix  *matrix.Matrix
	Results []ClipResult
	// Ignored lists files in the clip directory that were not evaluated.
	Ignored []string
	Gaps    []matrix.Gap
}

type clipFile struct {
	path  string
	truth models.GroundTruth
}

// listClips returns the clip files directly inside dir, in name order, whose
// names parse and whose duration is configured.
func (h *Harness) listClips(dir string) ([]clipFile, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading clip directory: %w", err)
	}

	var clips []clipFile
	var ignored []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		gt, err := clip.ParseName(e.Name())
		if err != nil {
			h.log.Debugf("Ignoring %s: %v", e.Name(), err)
			ignored = append(ignored, e.Name())
			continue
		}
		if !h.hasDuration(gt.Duration) {
			h.log.Debugf("Ignoring %s: %ds is not a configured duration", e.Name(), gt.Duration)
			ignored = append(ignored, e.Name())
			continue
		}
		clips = append(clips, clipFile{path: filepath.Join(dir, e.Name()), truth: gt})
	}
	return clips, ignored, nil
}

// Evaluate queries the engine for every clip in clipDir, one at a time, and
// fills a result matrix. Invocation and parse failures abort the run.
func (h *Harness) Evaluate(ctx context.Context, clipDir string) (ev *Evaluation, err error) {
	clips, ignored, err := h.listClips(clipDir)
	if err != nil {
		return nil, err
	}

	ev = &Evaluation{
		Matrix:  matrix.New(h.config.Durations),
		Ignored: ignored,
	}

	if h.storage != nil {
		run := &storage.Run{
			Seed:          h.Seed(),
			Padding:       h.config.Padding,
			Durations:     h.config.Durations,
			ClipDir:       clipDir,
			EngineCommand: h.config.EngineCommand,
		}
		if err := h.storage.CreateRun(run); err != nil {
			return nil, err
		}
		ev.RunID = run.ID
		h.log.Infof("Started run %s", run.ID)

		defer func() {
			if ferr := h.storage.FinishRun(run.ID, err); ferr != nil {
				h.log.Errorf("Could not finish run %s: %v", run.ID, ferr)
			}
		}()
	}

	h.log.Infof("Evaluating %d clips from %s (%d ignored)", len(clips), clipDir, len(ignored))
	if len(clips) == 0 {
		h.log.Warnf("No clips to evaluate in %s", clipDir)
	}

	h.progress.Start("evaluate", len(clips))
	defer h.progress.Done()

	for _, c := range clips {
		if err := ctx.Err(); err != nil {
			return ev, err
		}
		res, err := h.evaluateOne(ctx, ev, c)
		h.progress.Increment()
		if err != nil {
			return ev, err
		}
		ev.Results = append(ev.Results, *res)
	}

	if want := matrix.ExpectedRows(len(clips), ev.Matrix.ColumnCount()); want != ev.Matrix.RowCount() {
		h.log.Warnf("Expected %d songs from %d clips over %d durations, found %d",
			want, len(clips), ev.Matrix.ColumnCount(), ev.Matrix.RowCount())
	}
	ev.Gaps = ev.Matrix.Ragged()
	if len(ev.Gaps) > 0 {
		if h.config.StrictMatrix {
			return ev, ev.Matrix.Check()
		}
		for _, g := range ev.Gaps {
			h.log.Warnf("%s has no clip for durations %v", g.Song, g.Missing)
		}
	}
	return ev, nil
}

func (h *Harness) evaluateOne(ctx context.Context, ev *Evaluation, c clipFile) (*ClipResult, error) {
	name := filepath.Base(c.path)
	h.log.Infof("file: %s", name)

	result, err := h.recognizer.Recognize(ctx, c.path)
	if err != nil {
		return nil, fmt.Errorf("recognizing %s: %w", name, err)
	}

	v := classify.Classify(result, c.truth, h.config.Fingerprint)
	switch v.Outcome {
	case models.OutcomeNoMatch:
		h.log.Infof("%s: no match", c.truth.SongID)
	case models.OutcomeInvalid:
		h.log.Infof("%s: invalid match (engine said %s)", c.truth.SongID, v.MatchedSongID)
	case models.OutcomeCorrect:
		h.log.Infof("%s: correct match, confidence %v, query %.3fs, start %ds, predicted %ds",
			c.truth.SongID, v.Confidence, v.QueryDuration, c.truth.StartTime, v.PredictedStart)
		if v.Accurate {
			h.log.Infof("%s: accurate match", c.truth.SongID)
		} else {
			h.log.Infof("%s: inaccurate match, off by %ds", c.truth.SongID, v.TimingError)
		}
	}

	if err := ev.Matrix.Record(c.truth.SongID, c.truth.Duration, models.CellFromVerdict(v)); err != nil {
		return nil, fmt.Errorf("recording %s: %w", name, err)
	}

	if h.storage != nil && ev.RunID != "" {
		raw := ""
		if result != nil {
			raw = result.Raw
		}
		if err := h.storage.SaveEvaluation(storage.NewEvaluation(ev.RunID, c.path, c.truth, v, raw)); err != nil {
			return nil, err
		}
	}

	return &ClipResult{Path: c.path, Truth: c.truth, Result: result, Verdict: v}, nil
}
