package matrix

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/dnabench/pkg/models"
)

func correct(conf float64) models.Cell {
	return models.Cell{Outcome: models.OutcomeCorrect, Accurate: true, Confidence: conf}
}

func TestRowAssignmentIsFirstSeen(t *testing.T) {
	m := New([]int{1, 2})

	require.NoError(t, m.Record("X", 1, correct(1)))
	require.NoError(t, m.Record("Y", 1, correct(2)))
	require.NoError(t, m.Record("X", 2, correct(3)))

	rowX, ok := m.RowOf("X")
	require.True(t, ok)
	rowY, ok := m.RowOf("Y")
	require.True(t, ok)

	assert.Equal(t, 0, rowX)
	assert.Equal(t, 1, rowY)
	assert.Equal(t, 2, m.RowCount())
	assert.Equal(t, []string{"X", "Y"}, m.Songs())
	assert.Equal(t, 3.0, m.Cell(0, 1).Confidence)
	assert.True(t, m.Cell(0, 1).Filled)
}

func TestRecordUnknownDuration(t *testing.T) {
	m := New([]int{5, 10})
	err := m.Record("X", 7, correct(1))
	assert.True(t, errors.Is(err, ErrUnknownDuration))
	assert.Equal(t, 0, m.RowCount(), "a rejected record must not allocate a row")
}

func TestLastWriteWins(t *testing.T) {
	m := New([]int{5})
	require.NoError(t, m.Record("X", 5, correct(1)))
	require.NoError(t, m.Record("X", 5, models.Cell{Outcome: models.OutcomeNoMatch}))

	assert.Equal(t, models.OutcomeNoMatch, m.Cell(0, 0).Outcome)
	assert.Equal(t, 1, m.RowCount())
}

func TestDuplicateDurationsCollapse(t *testing.T) {
	m := New([]int{5, 10, 5})
	assert.Equal(t, []int{5, 10}, m.Durations())
	assert.Equal(t, 2, m.ColumnCount())
}

func TestColumnAndBounds(t *testing.T) {
	m := New([]int{1, 2})
	require.NoError(t, m.Record("A", 2, correct(0.5)))
	require.NoError(t, m.Record("B", 1, correct(0.7)))

	col := m.Column(1)
	require.Len(t, col, 2)
	assert.True(t, col[0].Filled)
	assert.False(t, col[1].Filled)

	assert.Nil(t, m.Column(5))
	assert.Equal(t, models.Cell{}, m.Cell(9, 0))
	assert.Equal(t, models.Cell{}, m.Cell(0, -1))
}

func TestAccessorsReturnCopies(t *testing.T) {
	m := New([]int{1})
	require.NoError(t, m.Record("A", 1, correct(1)))

	m.Songs()[0] = "mutated"
	m.Durations()[0] = 99
	m.Column(0)[0].Confidence = 42

	assert.Equal(t, []string{"A"}, m.Songs())
	assert.Equal(t, []int{1}, m.Durations())
	assert.Equal(t, 1.0, m.Cell(0, 0).Confidence)
}

func TestRaggedAndCheck(t *testing.T) {
	m := New([]int{1, 2, 3})
	for _, d := range []int{1, 2, 3} {
		require.NoError(t, m.Record("full", d, correct(1)))
	}
	require.NoError(t, m.Record("partial", 2, correct(1)))

	gaps := m.Ragged()
	require.Len(t, gaps, 1)
	assert.Equal(t, "partial", gaps[0].Song)
	assert.Equal(t, []int{1, 3}, gaps[0].Missing)

	err := m.Check()
	assert.ErrorIs(t, err, ErrRaggedMatrix)
	assert.Contains(t, err.Error(), `"partial"`)

	require.NoError(t, m.Record("partial", 1, correct(1)))
	require.NoError(t, m.Record("partial", 3, correct(1)))
	assert.Empty(t, m.Ragged())
	assert.NoError(t, m.Check())
}

func TestExpectedRows(t *testing.T) {
	tests := []struct{ clips, cols, want int }{
		{0, 3, 0},
		{6, 3, 2},
		{7, 3, 3},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpectedRows(tt.clips, tt.cols), "clips=%d cols=%d", tt.clips, tt.cols)
	}
}

func TestMatrixSatisfiesReader(t *testing.T) {
	var _ Reader = New(nil)
}
