// Package matrix accumulates classified results into a song × duration grid.
package matrix

import (
	"errors"
	"fmt"
	"slices"

	"github.com/himanishpuri/dnabench/pkg/models"
)

var (
	ErrUnknownDuration = errors.New("duration is not a column of this matrix")
	ErrRaggedMatrix    = errors.New("result matrix has unfilled cells")
)

// Reader is the read-only view of a matrix. Every accessor returns a copy.
type Reader interface {
	RowCount() int
	ColumnCount() int
	Songs() []string
	Durations() []int
	Cell(row, col int) models.Cell
	Column(col int) []models.Cell
}

// Matrix holds one row per song, in first-seen order, and one column per
// configured duration. Rows always span every column; cells never written
// keep Filled == false.
type Matrix struct {
	durations []int
	colOf     map[int]int

	rowOf   map[string]int
	songs   []string
	nextRow int
	cells   [][]models.Cell
}

// New creates an empty matrix with a column for each duration, in the order
// given. Repeated durations collapse onto their first column.
func New(durations []int) *Matrix {
	m := &Matrix{
		colOf: make(map[int]int, len(durations)),
		rowOf: make(map[string]int),
	}
	for _, d := range durations {
		if _, dup := m.colOf[d]; dup {
			continue
		}
		m.colOf[d] = len(m.durations)
		m.durations = append(m.durations, d)
	}
	return m
}

// Record stores cell at (songID, duration). A song gets the next free row the
// first time it is seen. A second write to the same slot replaces the first.
func (m *Matrix) Record(songID string, duration int, cell models.Cell) error {
	col, ok := m.colOf[duration]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDuration, duration)
	}

	row, seen := m.rowOf[songID]
	if !seen {
		row = m.nextRow
		m.nextRow++
		m.rowOf[songID] = row
		m.songs = append(m.songs, songID)
		m.cells = append(m.cells, make([]models.Cell, len(m.durations)))
	}

	cell.Filled = true
	m.cells[row][col] = cell
	return nil
}

// RowOf returns the row assigned to songID.
func (m *Matrix) RowOf(songID string) (int, bool) {
	row, ok := m.rowOf[songID]
	return row, ok
}

func (m *Matrix) RowCount() int    { return len(m.songs) }
func (m *Matrix) ColumnCount() int { return len(m.durations) }
func (m *Matrix) Songs() []string  { return slices.Clone(m.songs) }
func (m *Matrix) Durations() []int { return slices.Clone(m.durations) }

// Cell returns the cell at (row, col), or the zero Cell when out of range.
func (m *Matrix) Cell(row, col int) models.Cell {
	if row < 0 || row >= len(m.cells) || col < 0 || col >= len(m.durations) {
		return models.Cell{}
	}
	return m.cells[row][col]
}

// Column returns every row's cell for col, indexed by row.
func (m *Matrix) Column(col int) []models.Cell {
	if col < 0 || col >= len(m.durations) {
		return nil
	}
	out := make([]models.Cell, len(m.cells))
	for i, row := range m.cells {
		out[i] = row[col]
	}
	return out
}

// Gap is a row with at least one unfilled cell.
type Gap struct {
	Song    string
	Missing []int // durations with no result
}

// Ragged lists rows with unfilled cells, in row order.
func (m *Matrix) Ragged() []Gap {
	var gaps []Gap
	for i, row := range m.cells {
		var missing []int
		for j, c := range row {
			if !c.Filled {
				missing = append(missing, m.durations[j])
			}
		}
		if len(missing) > 0 {
			gaps = append(gaps, Gap{Song: m.songs[i], Missing: missing})
		}
	}
	return gaps
}

// Check returns ErrRaggedMatrix describing the first gap, if any.
func (m *Matrix) Check() error {
	gaps := m.Ragged()
	if len(gaps) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d rows incomplete, first %q missing durations %v",
		ErrRaggedMatrix, len(gaps), gaps[0].Song, gaps[0].Missing)
}

// ExpectedRows is the row count a clip directory of the given size would
// produce if every song had one clip per duration.
func ExpectedRows(clips, columns int) int {
	if columns <= 0 {
		return 0
	}
	return (clips + columns - 1) / columns
}
