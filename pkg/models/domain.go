package models

// CorpusEntry is a reference recording the engine is expected to know.
type CorpusEntry struct {
	SongID string // file name without extension
	Path   string
	Ext    string // with leading dot, as found on disk
	Title  string // from embedded tags, if any
	Artist string // from embedded tags, if any
}

// GroundTruth is what a clip's file name says about it.
type GroundTruth struct {
	SongID    string
	StartTime int // seconds into the source recording
	Duration  int // seconds
	Ext       string
}

// SampledClip is a generated query clip.
type SampledClip struct {
	GroundTruth
	Path       string
	SourcePath string
	// SourceLabel is the recording's tag label, see corpus.Label.
	SourceLabel string
	// Degenerate is set when the recording was too short for the padded
	// sampling window and the start time fell back to zero.
	Degenerate bool
}

// RecognitionResult is the engine's answer for one clip.
type RecognitionResult struct {
	Matched        bool
	MatchedSongID  string
	Confidence     float64
	LandmarkOffset int
	QueryDuration  float64 // seconds the engine spent on the query
	Raw            string
}

// NoMatch reports whether the engine declined to name a song.
func (r *RecognitionResult) NoMatch() bool {
	return r == nil || !r.Matched
}

type Outcome string

const (
	OutcomeNoMatch  Outcome = "no_match"
	OutcomeInvalid  Outcome = "invalid_match"
	OutcomeCorrect  Outcome = "correct_match"
	OutcomeUnfilled Outcome = ""
)

// Score is the value plotted for an outcome: correct 1, no match 0, invalid -1.
func (o Outcome) Score() float64 {
	switch o {
	case OutcomeCorrect:
		return 1
	case OutcomeInvalid:
		return -1
	default:
		return 0
	}
}

// Verdict is the classification of one recognition attempt against ground truth.
type Verdict struct {
	Outcome        Outcome
	MatchedSongID  string
	PredictedStart int
	TimingError    int
	Accurate       bool
	Confidence     float64
	QueryDuration  float64
}

// Cell is one (song, duration) slot of a result matrix.
type Cell struct {
	Outcome       Outcome `json:"outcome"`
	TimingError   int     `json:"timing_error"`
	Accurate      bool    `json:"accurate"`
	Confidence    float64 `json:"confidence"`
	QueryDuration float64 `json:"query_duration"`
	Filled        bool    `json:"filled"`
}

// CellFromVerdict projects the reportable fields of v.
func CellFromVerdict(v Verdict) Cell {
	return Cell{
		Outcome:       v.Outcome,
		TimingError:   v.TimingError,
		Accurate:      v.Accurate,
		Confidence:    v.Confidence,
		QueryDuration: v.QueryDuration,
		Filled:        true,
	}
}
