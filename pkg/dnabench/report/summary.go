package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/himanishpuri/dnabench/pkg/dnabench/classify"
	"github.com/himanishpuri/dnabench/pkg/dnabench/matrix"
	"github.com/himanishpuri/dnabench/pkg/models"
	"github.com/himanishpuri/dnabench/pkg/utils"
)

// SummaryFile is the name WriteJSON callers use next to the charts.
const SummaryFile = "summary.json"

// Summary aggregates one duration column.
type Summary struct {
	Duration int `json:"duration"`
	Songs    int `json:"songs"`
	Filled   int `json:"filled"`
	Correct  int `json:"correct"`
	NoMatch  int `json:"no_match"`
	Invalid  int `json:"invalid"`
	Accurate int `json:"accurate"`

	// Means are over correct matches only.
	MeanConfidence    float64 `json:"mean_confidence"`
	MeanQueryDuration float64 `json:"mean_query_duration"`

	// Rates are over filled cells.
	MatchRate    float64 `json:"match_rate"`
	AccuracyRate float64 `json:"accuracy_rate"`
}

// Summarize returns one Summary per duration, in column order.
func Summarize(m matrix.Reader) []Summary {
	durations := m.Durations()
	out := make([]Summary, 0, len(durations))

	for col, d := range durations {
		s := Summary{Duration: d, Songs: m.RowCount()}
		var confSum, querySum float64
		for _, c := range m.Column(col) {
			if !c.Filled {
				continue
			}
			s.Filled++
			switch c.Outcome {
			case models.OutcomeCorrect:
				s.Correct++
				confSum += c.Confidence
				querySum += c.QueryDuration
				if c.Accurate {
					s.Accurate++
				}
			case models.OutcomeNoMatch:
				s.NoMatch++
			case models.OutcomeInvalid:
				s.Invalid++
			}
		}
		if s.Correct > 0 {
			s.MeanConfidence = classify.Round3(confSum / float64(s.Correct))
			s.MeanQueryDuration = classify.Round3(querySum / float64(s.Correct))
		}
		if s.Filled > 0 {
			s.MatchRate = classify.Round3(float64(s.Correct) / float64(s.Filled))
			s.AccuracyRate = classify.Round3(float64(s.Accurate) / float64(s.Filled))
		}
		out = append(out, s)
	}
	return out
}

// WriteSummary prints summaries as an aligned table.
func WriteSummary(w io.Writer, summaries []Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "duration\tclips\tcorrect\tno match\twrong song\taccurate\tmatch %\taccuracy %\tconfidence\tquery s\t")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%ds\t%d\t%d\t%d\t%d\t%d\t%.1f\t%.1f\t%.3f\t%.3f\t\n",
			s.Duration, s.Filled, s.Correct, s.NoMatch, s.Invalid, s.Accurate,
			s.MatchRate*100, s.AccuracyRate*100, s.MeanConfidence, s.MeanQueryDuration)
	}
	return tw.Flush()
}

// WriteJSON writes summaries to path. The file is written beside its final
// name and renamed into place, so readers never see a partial file.
func WriteJSON(path string, summaries []Summary) error {
	if summaries == nil {
		summaries = []Summary{}
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".summary-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return utils.MoveFile(tmp.Name(), path)
}

// ReadJSON loads a summary written by WriteJSON.
func ReadJSON(path string) ([]Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var summaries []Summary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return summaries, nil
}
