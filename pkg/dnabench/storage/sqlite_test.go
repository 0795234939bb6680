package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/dnabench/pkg/models"
)

func openTestDB(t *testing.T) *DBClient {
	t.Helper()
	db, err := NewDBClientWithPath(filepath.Join(t.TempDir(), "nested", "runs.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetRun(t *testing.T) {
	db := openTestDB(t)

	run := &Run{Seed: 7, Padding: 10, Durations: []int{5, 10}, ClipDir: "clips", EngineCommand: []string{"python", "dejavu.py", "-r", "file"}}
	require.NoError(t, db.CreateRun(run))
	assert.Len(t, run.ID, 36)
	assert.Equal(t, StatusRunning, run.Status)

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10}, got.Durations)
	assert.Equal(t, run.EngineCommand, got.EngineCommand)
	assert.Equal(t, int64(7), got.Seed)
	assert.Nil(t, got.FinishedAt)
}

func TestGetRunNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRun("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestFinishRun(t *testing.T) {
	db := openTestDB(t)

	ok := &Run{}
	bad := &Run{}
	require.NoError(t, db.CreateRun(ok))
	require.NoError(t, db.CreateRun(bad))

	require.NoError(t, db.FinishRun(ok.ID, nil))
	require.NoError(t, db.FinishRun(bad.ID, errors.New("engine timed out")))

	got, err := db.GetRun(ok.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)

	got, err = db.GetRun(bad.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "engine timed out", got.Error)

	assert.ErrorIs(t, db.FinishRun("nope", nil), ErrRunNotFound)
}

func TestEvaluationsKeepSaveOrder(t *testing.T) {
	db := openTestDB(t)
	run := &Run{}
	require.NoError(t, db.CreateRun(run))

	songs := []string{"Y", "X", "Z", "X"}
	for i, s := range songs {
		truth := models.GroundTruth{SongID: s, StartTime: 10 + i, Duration: 5}
		v := models.Verdict{Outcome: models.OutcomeCorrect, MatchedSongID: s, Accurate: true, Confidence: 0.5}
		require.NoError(t, db.SaveEvaluation(NewEvaluation(run.ID, s+".mp3", truth, v, "{}")))
	}

	rows, err := db.ListEvaluations(run.ID)
	require.NoError(t, err)
	require.Len(t, rows, len(songs))
	for i, r := range rows {
		assert.Equal(t, songs[i], r.SongID)
		assert.Equal(t, 10+i, r.StartTime)
	}

	cell := rows[0].Cell()
	assert.True(t, cell.Filled)
	assert.Equal(t, models.OutcomeCorrect, cell.Outcome)
	assert.Equal(t, 0.5, cell.Confidence)
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		run := &Run{CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, db.CreateRun(run))
		ids = append(ids, run.ID)
	}

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = db.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDeleteRunCascades(t *testing.T) {
	db := openTestDB(t)
	keep := &Run{}
	drop := &Run{}
	require.NoError(t, db.CreateRun(keep))
	require.NoError(t, db.CreateRun(drop))

	for _, id := range []string{keep.ID, drop.ID} {
		e := NewEvaluation(id, "a.mp3", models.GroundTruth{SongID: "A", Duration: 5}, models.Verdict{Outcome: models.OutcomeNoMatch}, "None")
		require.NoError(t, db.SaveEvaluation(e))
	}

	require.NoError(t, db.DeleteRun(drop.ID))

	_, err := db.GetRun(drop.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	rows, err := db.ListEvaluations(drop.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = db.ListEvaluations(keep.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	assert.ErrorIs(t, db.DeleteRun(drop.ID), ErrRunNotFound)
}

func TestNilClient(t *testing.T) {
	var db *DBClient
	assert.NoError(t, db.Close())
	assert.Error(t, db.CreateRun(&Run{}))
	_, err := db.ListRuns(0)
	assert.Error(t, err)
}
