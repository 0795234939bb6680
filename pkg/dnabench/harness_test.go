package dnabench

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/dnabench/pkg/dnabench/classify"
	"github.com/himanishpuri/dnabench/pkg/dnabench/clip"
	"github.com/himanishpuri/dnabench/pkg/dnabench/matrix"
	"github.com/himanishpuri/dnabench/pkg/dnabench/media"
	"github.com/himanishpuri/dnabench/pkg/dnabench/recognition"
	"github.com/himanishpuri/dnabench/pkg/dnabench/report"
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
	"github.com/himanishpuri/dnabench/pkg/logger"
	"github.com/himanishpuri/dnabench/pkg/models"
)

type stubProber map[string]int

func (p stubProber) Duration(_ context.Context, path, _ string) (int, error) {
	n, ok := p[filepath.Base(path)]
	if !ok {
		return 0, errors.New("unsupported codec")
	}
	return n, nil
}

type touchExtractor struct{}

func (touchExtractor) Extract(_ context.Context, req media.ExtractRequest) error {
	return os.WriteFile(req.Output, []byte("clip"), 0o644)
}

// engineFunc answers like the engine's CLI would, given the clip's ground truth.
type engineFunc func(gt models.GroundTruth) (string, error)

func (f engineFunc) Invoke(_ context.Context, clipPath string) (string, error) {
	gt, err := clip.ParseName(filepath.Base(clipPath))
	if err != nil {
		return "", err
	}
	return f(gt)
}

// landmarkOffset is the engine offset that maps back to start seconds.
func landmarkOffset(start int) int {
	return int(math.Round(float64(start) * 44100 / 2048))
}

func record(song string, offset int) string {
	return fmt.Sprintf("{'song_id': 1, 'song_name': '%s', 'confidence': 0.92, 'offset': %d, 'match_time': 1.23456}", song, offset)
}

// scriptedEngine knows Track1, never hears Track2 and mistakes Track3 for OtherTrack.
func scriptedEngine(gt models.GroundTruth) (string, error) {
	switch gt.SongID {
	case "Track1":
		return record("Track1", landmarkOffset(gt.StartTime)), nil
	case "Track3":
		return record("OtherTrack", landmarkOffset(gt.StartTime)), nil
	}
	return "None\n", nil
}

func engineRecognizer(f engineFunc) recognition.Recognizer {
	return &recognition.EngineRecognizer{Invoker: f, Parser: recognition.Parser{}}
}

type countingProgress struct {
	stages     []string
	totals     []int
	increments int
	done       int
}

func (p *countingProgress) Start(stage string, total int) {
	p.stages = append(p.stages, stage)
	p.totals = append(p.totals, total)
}
func (p *countingProgress) Increment() { p.increments++ }
func (p *countingProgress) Done()      { p.done++ }

func newTestHarness(t *testing.T, opts ...Option) *Harness {
	t.Helper()
	base := []Option{
		WithLogger(logger.Discard()),
		WithDurations(5, 10),
		WithSeed(1),
		WithDBPath(filepath.Join(t.TempDir(), "runs.sqlite3")),
		WithProber(stubProber{"Track1.mp3": 300, "Track2.wav": 300, "Track3.mp3": 300}),
		WithExtractor(touchExtractor{}),
		WithRecognizer(engineRecognizer(scriptedEngine)),
	}
	h, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
}

func TestGenerateThenEvaluate(t *testing.T) {
	src, clips := t.TempDir(), filepath.Join(t.TempDir(), "clips")
	writeFiles(t, src, "Track1.mp3", "Track2.wav", "Track3.mp3")

	progress := &countingProgress{}
	h := newTestHarness(t, WithProgress(progress))
	ctx := context.Background()

	reports, err := h.Generate(ctx, src, clips)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Len(t, r.Clips, 3)
		assert.Empty(t, r.Skipped)
	}

	ev, err := h.Evaluate(ctx, clips)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.RunID)
	assert.Len(t, ev.Results, 6)
	assert.Empty(t, ev.Gaps)
	assert.Empty(t, ev.Ignored)

	m := ev.Matrix
	assert.Equal(t, []string{"Track1", "Track2", "Track3"}, m.Songs())
	for col := range m.Durations() {
		correct := m.Cell(0, col)
		assert.Equal(t, models.OutcomeCorrect, correct.Outcome)
		assert.True(t, correct.Accurate)
		assert.Equal(t, 0, correct.TimingError)
		assert.Equal(t, 0.92, correct.Confidence)
		assert.Equal(t, 1.235, correct.QueryDuration)

		assert.Equal(t, models.OutcomeNoMatch, m.Cell(1, col).Outcome)

		invalid := m.Cell(2, col)
		assert.Equal(t, models.OutcomeInvalid, invalid.Outcome)
		assert.Zero(t, invalid.Confidence)
		assert.Zero(t, invalid.TimingError)
	}

	assert.Equal(t, []string{"generate", "evaluate"}, progress.stages)
	assert.Equal(t, []int{6, 6}, progress.totals)
	assert.Equal(t, 12, progress.increments)
	assert.Equal(t, 2, progress.done)

	run, stored, err := h.LoadRun(ev.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCompleted, run.Status)
	assert.Equal(t, int64(1), run.Seed)
	assert.Equal(t, m.Songs(), stored.Songs())
	for col := range m.Durations() {
		assert.Equal(t, m.Column(col), stored.Column(col))
	}

	out := filepath.Join(t.TempDir(), "results")
	paths, summaries, err := h.Report(stored, out)
	require.NoError(t, err)
	assert.Len(t, paths, 6)
	require.Len(t, summaries, 2)
	assert.Equal(t, 1, summaries[0].Correct)
	assert.Equal(t, 1, summaries[0].NoMatch)
	assert.Equal(t, 1, summaries[0].Invalid)
	assert.FileExists(t, filepath.Join(out, report.SummaryFile))
}

func TestSeedMakesGenerationReproducible(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "Track1.mp3", "Track2.wav", "Track3.mp3")

	starts := func() []int {
		h := newTestHarness(t, WithSeed(99))
		reports, err := h.Generate(context.Background(), src, t.TempDir())
		require.NoError(t, err)
		var out []int
		for _, r := range reports {
			for _, c := range r.Clips {
				out = append(out, c.StartTime)
			}
		}
		return out
	}

	first := starts()
	assert.Equal(t, first, starts())
	for _, s := range first {
		assert.GreaterOrEqual(t, s, 10)
	}
}

func TestGenerateWithClipsInsideCorpus(t *testing.T) {
	src := t.TempDir()
	clips := filepath.Join(src, "clips")
	writeFiles(t, src, "Track1.mp3")

	progress := &countingProgress{}
	h := newTestHarness(t, WithProgress(progress))
	ctx := context.Background()

	reports, err := h.Generate(ctx, src, clips)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		require.Len(t, r.Clips, 1, "%ds", r.Duration)
		assert.Empty(t, r.Skipped)
		assert.Equal(t, "Track1", r.Clips[0].SongID)
	}
	assert.Equal(t, []int{2}, progress.totals)
	assert.Equal(t, 2, progress.increments)

	ev, err := h.Evaluate(ctx, clips)
	require.NoError(t, err)
	assert.Equal(t, []string{"Track1"}, ev.Matrix.Songs())
	assert.Empty(t, ev.Gaps)
}

func TestEvaluateDecodesEscapedSongNames(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Café_40_5sec.mp3", "Café_60_10sec.mp3")

	engine := engineFunc(func(gt models.GroundTruth) (string, error) {
		return fmt.Sprintf("{'song_name': 'Caf\\xc3\\xa9', 'confidence': 7, 'offset': %dL, 'match_time': 0.5}",
			landmarkOffset(gt.StartTime)), nil
	})
	h := newTestHarness(t, WithRecognizer(engineRecognizer(engine)))

	ev, err := h.Evaluate(context.Background(), dir)
	require.NoError(t, err)
	for col := range ev.Matrix.Durations() {
		assert.Equal(t, models.OutcomeCorrect, ev.Matrix.Cell(0, col).Outcome)
	}
}

func TestEvaluateSelectsClips(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"Track1_42_5sec.mp3",
		"Track1_50_10sec.mp3",
		"Track2_20_5sec.wav",
		"Track2_20_7sec.wav", // duration not configured
		"notes.txt",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Track9_1_5sec.mp3"), 0o755))

	h := newTestHarness(t)
	ev, err := h.Evaluate(context.Background(), dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Track2_20_7sec.wav", "notes.txt"}, ev.Ignored)
	assert.Len(t, ev.Results, 3)
	require.Len(t, ev.Gaps, 1)
	assert.Equal(t, "Track2", ev.Gaps[0].Song)
	assert.Equal(t, []int{10}, ev.Gaps[0].Missing)
}

func TestEvaluateStrictMatrixFailsRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Track1_42_5sec.mp3", "Track1_50_10sec.mp3", "Track2_20_5sec.wav")

	h := newTestHarness(t, WithStrictMatrix(true))
	ev, err := h.Evaluate(context.Background(), dir)
	require.ErrorIs(t, err, matrix.ErrRaggedMatrix)

	run, _, lerr := h.LoadRun(ev.RunID)
	require.NoError(t, lerr)
	assert.Equal(t, storage.StatusFailed, run.Status)
	assert.Contains(t, run.Error, "Track2")
}

func TestEvaluateAbortsOnUnparseableAnswer(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Track1_42_5sec.mp3", "Track2_20_5sec.mp3")

	engine := engineFunc(func(gt models.GroundTruth) (string, error) {
		return "Traceback (most recent call last): {", nil
	})
	h := newTestHarness(t, WithRecognizer(engineRecognizer(engine)))

	ev, err := h.Evaluate(context.Background(), dir)
	require.Error(t, err)
	var perr *recognition.ResultParseError
	assert.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "Track1_42_5sec.mp3")
	assert.Empty(t, ev.Results)

	runs, err := h.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.StatusFailed, runs[0].Status)
}

func TestEvaluatePropagatesTimeout(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Track1_42_5sec.mp3")

	engine := engineFunc(func(models.GroundTruth) (string, error) {
		return "", recognition.ErrInvocationTimeout
	})
	h := newTestHarness(t, WithRecognizer(engineRecognizer(engine)))

	_, err := h.Evaluate(context.Background(), dir)
	assert.ErrorIs(t, err, recognition.ErrInvocationTimeout)
}

func TestEvaluateWithoutStorage(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Track1_42_5sec.mp3", "Track1_42_10sec.mp3")

	h := newTestHarness(t, WithDBPath(""))
	ev, err := h.Evaluate(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, ev.RunID)
	assert.Equal(t, 1, ev.Matrix.RowCount())

	_, err = h.Runs(0)
	assert.ErrorIs(t, err, ErrNoStorage)
	assert.ErrorIs(t, h.DeleteRun("x"), ErrNoStorage)
}

func TestDeleteRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Track1_42_5sec.mp3")

	h := newTestHarness(t)
	ev, err := h.Evaluate(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, h.DeleteRun(ev.RunID))
	_, _, err = h.LoadRun(ev.RunID)
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
}

func TestMatrixFromEvaluationsRejectsUnknownDuration(t *testing.T) {
	evals := []storage.Evaluation{{SongID: "A", Duration: 7, ClipPath: "A_1_7sec.mp3"}}
	_, err := MatrixFromEvaluations([]int{5}, evals)
	assert.ErrorIs(t, err, matrix.ErrUnknownDuration)
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"no durations", WithDurations()},
		{"negative duration", WithDurations(5, -1)},
		{"no extensions", WithExtensions()},
		{"negative padding", WithPadding(-1)},
		{"bad policy", WithShortRecordingPolicy("maybe")},
		{"bad overlap", WithFingerprintParams(classify.FingerprintParams{WindowSize: 4096, OverlapRatio: 1.5, SampleRate: 44100})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithLogger(logger.Discard()), WithDBPath(""), tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestNewWithoutSeedDrawsOne(t *testing.T) {
	h, err := New(WithLogger(logger.Discard()), WithDBPath(""))
	require.NoError(t, err)
	defer h.Close()
	assert.False(t, h.sampler.Seeded())
	assert.Equal(t, h.sampler.Seed(), h.Seed())
}
