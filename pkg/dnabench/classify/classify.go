// Package classify scores one recognition result against the ground truth
// encoded in a clip's file name.
package classify

import (
	"math"

	"github.com/himanishpuri/dnabench/pkg/models"
)

// FingerprintParams are the engine's spectral-analysis constants, needed to
// turn a landmark offset back into seconds.
type FingerprintParams struct {
	WindowSize   int     `yaml:"window_size" json:"window_size"`
	OverlapRatio float64 `yaml:"overlap_ratio" json:"overlap_ratio"`
	SampleRate   int     `yaml:"sample_rate" json:"sample_rate"`
}

// DefaultFingerprintParams returns the engine's default analysis settings.
func DefaultFingerprintParams() FingerprintParams {
	return FingerprintParams{
		WindowSize:   4096,
		OverlapRatio: 0.5,
		SampleRate:   44100,
	}
}

// OffsetSeconds converts a landmark offset to whole seconds, rounding half
// away from zero.
func (p FingerprintParams) OffsetSeconds(offset int) int {
	return int(math.Round(float64(offset) * float64(p.WindowSize) * p.OverlapRatio / float64(p.SampleRate)))
}

// Classify compares result with truth. It has no state: equal inputs give
// equal verdicts.
func Classify(result *models.RecognitionResult, truth models.GroundTruth, p FingerprintParams) models.Verdict {
	if result.NoMatch() {
		return models.Verdict{Outcome: models.OutcomeNoMatch}
	}
	if result.MatchedSongID != truth.SongID {
		// timing of a wrong song means nothing
		return models.Verdict{Outcome: models.OutcomeInvalid, MatchedSongID: result.MatchedSongID}
	}

	predicted := p.OffsetSeconds(result.LandmarkOffset)
	timingError := predicted - truth.StartTime
	if timingError == 1 || timingError == -1 {
		timingError = 0
	}

	return models.Verdict{
		Outcome:        models.OutcomeCorrect,
		MatchedSongID:  result.MatchedSongID,
		PredictedStart: predicted,
		TimingError:    timingError,
		Accurate:       timingError == 0,
		Confidence:     Round3(result.Confidence),
		QueryDuration:  Round3(result.QueryDuration),
	}
}

// Round3 rounds to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
