package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/dnabench/pkg/dnabench/matrix"
	"github.com/himanishpuri/dnabench/pkg/models"
)

func sampleMatrix(t *testing.T) *matrix.Matrix {
	t.Helper()
	m := matrix.New([]int{5, 10})
	record := func(song string, d int, c models.Cell) {
		require.NoError(t, m.Record(song, d, c))
	}

	record("Track1", 5, models.Cell{Outcome: models.OutcomeCorrect, Accurate: true, Confidence: 0.9, QueryDuration: 1.0})
	record("Track1", 10, models.Cell{Outcome: models.OutcomeCorrect, TimingError: 3, Confidence: 0.5, QueryDuration: 2.0})
	record("Track2", 5, models.Cell{Outcome: models.OutcomeNoMatch})
	record("Track2", 10, models.Cell{Outcome: models.OutcomeCorrect, Accurate: true, Confidence: 0.7, QueryDuration: 1.0})
	record("Track3", 5, models.Cell{Outcome: models.OutcomeInvalid})
	return m
}

func TestSummarize(t *testing.T) {
	got := Summarize(sampleMatrix(t))
	require.Len(t, got, 2)

	five := got[0]
	assert.Equal(t, 5, five.Duration)
	assert.Equal(t, 3, five.Songs)
	assert.Equal(t, 3, five.Filled)
	assert.Equal(t, 1, five.Correct)
	assert.Equal(t, 1, five.NoMatch)
	assert.Equal(t, 1, five.Invalid)
	assert.Equal(t, 1, five.Accurate)
	assert.Equal(t, 0.9, five.MeanConfidence)
	assert.Equal(t, 0.333, five.MatchRate)

	ten := got[1]
	assert.Equal(t, 2, ten.Filled, "Track3 has no 10s clip")
	assert.Equal(t, 2, ten.Correct)
	assert.Equal(t, 1, ten.Accurate)
	assert.Equal(t, 0.6, ten.MeanConfidence)
	assert.Equal(t, 1.5, ten.MeanQueryDuration)
	assert.Equal(t, 0.5, ten.AccuracyRate)
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(matrix.New([]int{5}))
	require.Len(t, got, 1)
	assert.Zero(t, got[0].MatchRate)
	assert.Zero(t, got[0].MeanConfidence)
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, Summarize(sampleMatrix(t))))

	out := buf.String()
	assert.Contains(t, out, "duration")
	assert.Contains(t, out, "5s")
	assert.Contains(t, out, "10s")
	assert.Contains(t, out, "33.3")
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	path := filepath.Join(dir, SummaryFile)
	want := Summarize(sampleMatrix(t))

	require.NoError(t, WriteJSON(path, want))
	got, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestRenderWritesChartPerMetricAndDuration(t *testing.T) {
	dir := t.TempDir()
	paths, err := Render(sampleMatrix(t), dir)
	require.NoError(t, err)
	require.Len(t, paths, len(Metrics)*2)

	for _, name := range []string{"match_5.png", "accuracy_5.png", "confidence_5.png", "match_10.png", "accuracy_10.png", "confidence_10.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestRenderEmptyMatrix(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	paths, err := Render(matrix.New([]int{5}), dir)
	require.NoError(t, err)
	assert.Empty(t, paths)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestMetricValues(t *testing.T) {
	c := models.Cell{Outcome: models.OutcomeInvalid, TimingError: -4, Confidence: 0.25}
	assert.Equal(t, -1.0, MetricMatch.value(c))
	assert.Equal(t, -4.0, MetricAccuracy.value(c))
	assert.Equal(t, 0.25, MetricConfidence.value(c))
}
