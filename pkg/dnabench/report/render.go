// Package report turns a result matrix into charts and summary statistics.
package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/himanishpuri/dnabench/pkg/dnabench/matrix"
	"github.com/himanishpuri/dnabench/pkg/models"
	"github.com/himanishpuri/dnabench/pkg/utils"
)

// Metric is one chart family.
type Metric string

const (
	MetricMatch      Metric = "match"
	MetricAccuracy   Metric = "accuracy"
	MetricConfidence Metric = "confidence"
)

// Metrics lists the charts Render draws for every duration.
var Metrics = []Metric{MetricMatch, MetricAccuracy, MetricConfidence}

func (m Metric) value(c models.Cell) float64 {
	switch m {
	case MetricMatch:
		return c.Outcome.Score()
	case MetricAccuracy:
		return float64(c.TimingError)
	case MetricConfidence:
		return c.Confidence
	}
	return 0
}

func (m Metric) axisLabel() string {
	switch m {
	case MetricMatch:
		return "correct = 1, no match = 0, wrong song = -1"
	case MetricAccuracy:
		return "timing error (s)"
	case MetricConfidence:
		return "confidence"
	}
	return string(m)
}

var barColors = map[Metric]color.Color{
	MetricMatch:      color.RGBA{R: 46, G: 139, B: 87, A: 255},
	MetricAccuracy:   color.RGBA{R: 70, G: 130, B: 180, A: 255},
	MetricConfidence: color.RGBA{R: 218, G: 165, B: 32, A: 255},
}

// ChartName is the file name used for a (metric, duration) chart.
func ChartName(m Metric, duration int) string {
	return fmt.Sprintf("%s_%d.png", m, duration)
}

// Render writes one bar chart per (duration, metric) into outDir and returns
// the written paths. An empty matrix produces no charts.
func Render(m matrix.Reader, outDir string) ([]string, error) {
	if m.RowCount() == 0 {
		return nil, nil
	}
	if err := utils.MakeDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	songs := m.Songs()
	var paths []string
	for col, duration := range m.Durations() {
		cells := m.Column(col)
		for _, metric := range Metrics {
			path := filepath.Join(outDir, ChartName(metric, duration))
			if err := renderChart(path, metric, duration, songs, cells); err != nil {
				return paths, fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func renderChart(path string, metric Metric, duration int, songs []string, cells []models.Cell) error {
	values := make(plotter.Values, len(cells))
	for i, c := range cells {
		values[i] = metric.value(c)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s, %ds clips", metric, duration)
	p.X.Label.Text = "song"
	p.Y.Label.Text = metric.axisLabel()
	p.X.Tick.Label.Rotation = math.Pi / 4

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return err
	}
	bars.Color = barColors[metric]
	bars.LineStyle.Width = 0

	p.Add(plotter.NewGrid(), bars)
	p.NominalX(songs...)

	if metric == MetricMatch {
		p.Y.Min, p.Y.Max = -1.2, 1.2
	}

	width := vg.Length(len(songs)) * 0.4 * vg.Inch
	if width < 6*vg.Inch {
		width = 6 * vg.Inch
	}
	return p.Save(width, 4*vg.Inch, path)
}
