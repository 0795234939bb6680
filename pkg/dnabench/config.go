package dnabench

import (
	"time"

	"github.com/himanishpuri/dnabench/pkg/dnabench/classify"
	"github.com/himanishpuri/dnabench/pkg/dnabench/clip"
	"github.com/himanishpuri/dnabench/pkg/dnabench/media"
	"github.com/himanishpuri/dnabench/pkg/dnabench/recognition"
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
)

type Config struct {
	Durations  []int
	Extensions []string
	Padding    int
	Seed       *int64
	Policy     clip.ShortRecordingPolicy
	Overwrite  bool

	EngineCommand []string
	EngineTimeout time.Duration
	NoMatchMarker string
	Fingerprint   classify.FingerprintParams

	// DBPath is the run store location. Empty disables persistence unless
	// Storage is set.
	DBPath string

	StrictMatrix bool

	Prober     media.Prober
	Extractor  media.Extractor
	Recognizer recognition.Recognizer
	Storage    Storage
	Logger     Logger
	Progress   Progress
}

type Option func(*Config)

// WithDurations sets the clip lengths, in seconds, to generate and evaluate.
func WithDurations(durations ...int) Option {
	return func(c *Config) {
		c.Durations = append([]int(nil), durations...)
	}
}

// WithExtensions sets the recording formats considered, e.g. "mp3", ".wav".
func WithExtensions(exts ...string) Option {
	return func(c *Config) {
		c.Extensions = append([]string(nil), exts...)
	}
}

func WithPadding(seconds int) Option {
	return func(c *Config) {
		c.Padding = seconds
	}
}

// WithSeed makes clip sampling reproducible.
func WithSeed(seed int64) Option {
	return func(c *Config) {
		c.Seed = &seed
	}
}

func WithShortRecordingPolicy(p clip.ShortRecordingPolicy) Option {
	return func(c *Config) {
		c.Policy = p
	}
}

// WithOverwrite lets generation replace clips that already exist.
func WithOverwrite(overwrite bool) Option {
	return func(c *Config) {
		c.Overwrite = overwrite
	}
}

// WithEngineCommand sets the argv prefix used to query the engine; the clip
// path is appended.
func WithEngineCommand(command ...string) Option {
	return func(c *Config) {
		c.EngineCommand = append([]string(nil), command...)
	}
}

func WithEngineTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.EngineTimeout = d
	}
}

func WithNoMatchMarker(marker string) Option {
	return func(c *Config) {
		c.NoMatchMarker = marker
	}
}

func WithFingerprintParams(p classify.FingerprintParams) Option {
	return func(c *Config) {
		c.Fingerprint = p
	}
}

func WithProber(p media.Prober) Option {
	return func(c *Config) {
		c.Prober = p
	}
}

func WithExtractor(e media.Extractor) Option {
	return func(c *Config) {
		c.Extractor = e
	}
}

// WithRecognizer replaces the engine process, e.g. with an in-process stub.
func WithRecognizer(r recognition.Recognizer) Option {
	return func(c *Config) {
		c.Recognizer = r
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithStorage(s Storage) Option {
	return func(c *Config) {
		c.Storage = s
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithStrictMatrix makes Evaluate fail when a song lacks a clip for some
// duration instead of logging a warning.
func WithStrictMatrix(strict bool) Option {
	return func(c *Config) {
		c.StrictMatrix = strict
	}
}

func WithProgress(p Progress) Option {
	return func(c *Config) {
		c.Progress = p
	}
}

func defaultConfig() *Config {
	return &Config{
		Durations:     []int{1, 2, 3, 4, 5, 6, 7, 8},
		Extensions:    []string{".mp3", ".wav"},
		Padding:       10,
		Policy:        clip.PolicyFallback,
		EngineCommand: recognition.DefaultCommand(),
		EngineTimeout: recognition.DefaultTimeout,
		NoMatchMarker: recognition.DefaultNoMatchMarker,
		Fingerprint:   classify.DefaultFingerprintParams(),
		DBPath:        storage.DefaultDBFile,
	}
}
