// Package dnabench measures how well an audio-recognition engine identifies
// short clips cut from its own corpus.
//
// A Harness first cuts clips of several lengths from every reference
// recording, encoding the ground truth in each clip's file name. It then
// queries the engine for every clip, classifies the answer and fills a
// song × duration result matrix, which is rendered as charts.
package dnabench

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/himanishpuri/dnabench/pkg/dnabench/clip"
	"github.com/himanishpuri/dnabench/pkg/dnabench/corpus"
	"github.com/himanishpuri/dnabench/pkg/dnabench/media"
	"github.com/himanishpuri/dnabench/pkg/dnabench/recognition"
	"github.com/himanishpuri/dnabench/pkg/dnabench/sampler"
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
	"github.com/himanishpuri/dnabench/pkg/logger"
	"github.com/himanishpuri/dnabench/pkg/models"
	"github.com/himanishpuri/dnabench/pkg/utils"
)

type Harness struct {
	config     *Config
	log        Logger
	progress   Progress
	sampler    *sampler.Sampler
	recognizer recognition.Recognizer
	storage    Storage
}

func New(opts ...Option) (*Harness, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Progress == nil {
		cfg.Progress = noProgress{}
	}
	if cfg.Prober == nil {
		p, err := media.NewProber("auto")
		if err != nil {
			return nil, err
		}
		cfg.Prober = p
	}
	if cfg.Extractor == nil {
		cfg.Extractor = media.FFmpeg{}
	}
	if cfg.Recognizer == nil {
		cfg.Recognizer = recognition.NewEngineRecognizer(cfg.EngineCommand, cfg.EngineTimeout, cfg.NoMatchMarker)
	}

	stor := cfg.Storage
	if stor == nil && cfg.DBPath != "" {
		db, err := storage.NewDBClientWithPath(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		stor = db
	}

	s := sampler.New(cfg.Seed)
	if !s.Seeded() {
		cfg.Logger.Debugf("No seed given, sampling with random seed %d", s.Seed())
	}

	return &Harness{
		config:     cfg,
		log:        cfg.Logger,
		progress:   cfg.Progress,
		sampler:    s,
		recognizer: cfg.Recognizer,
		storage:    stor,
	}, nil
}

func validate(cfg *Config) error {
	if len(cfg.Durations) == 0 {
		return errors.New("at least one clip duration is required")
	}
	for _, d := range cfg.Durations {
		if d <= 0 {
			return fmt.Errorf("clip duration must be positive, got %d", d)
		}
	}
	if len(cfg.Extensions) == 0 {
		return errors.New("at least one recording extension is required")
	}
	if cfg.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", cfg.Padding)
	}
	if _, err := clip.ParsePolicy(string(cfg.Policy)); err != nil {
		return err
	}
	if cfg.Recognizer == nil && len(cfg.EngineCommand) == 0 {
		return errors.New("no recognition engine command configured")
	}
	p := cfg.Fingerprint
	if p.WindowSize <= 0 || p.SampleRate <= 0 || p.OverlapRatio <= 0 || p.OverlapRatio >= 1 {
		return fmt.Errorf("invalid fingerprint parameters %+v", p)
	}
	return nil
}

// Seed returns the sampling seed, whether given or drawn.
func (h *Harness) Seed() int64 { return h.sampler.Seed() }

func (h *Harness) Config() Config { return *h.config }

func (h *Harness) Close() error {
	if h.storage != nil {
		return h.storage.Close()
	}
	return nil
}

// GenerateReport is the generation outcome for one clip duration.
type GenerateReport struct {
	Duration int
	Clips    []models.SampledClip
	Skipped  []clip.Skipped
}

// Generate cuts one clip per recording under src for every configured
// duration, writing them flat into dest. The corpus is listed once, before
// any clip is written, and dest is left out of it.
func (h *Harness) Generate(ctx context.Context, src, dest string) ([]GenerateReport, error) {
	if !utils.DirExists(src) {
		return nil, fmt.Errorf("source directory %s does not exist", src)
	}
	entries, err := corpus.List(src, h.config.Extensions, dest)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		h.log.Warnf("No %v recordings found under %s", h.config.Extensions, src)
	}
	h.log.Debugf("Found %d recordings under %s", len(entries), src)

	gen := &clip.Generator{
		Prober:     h.config.Prober,
		Extractor:  h.config.Extractor,
		Sampler:    h.sampler,
		Log:        h.log,
		Extensions: h.config.Extensions,
		Padding:    h.config.Padding,
		Policy:     h.config.Policy,
		Overwrite:  h.config.Overwrite,
		OnClip:     h.progress.Increment,
	}

	h.progress.Start("generate", len(entries)*len(h.config.Durations))
	defer h.progress.Done()

	reports := make([]GenerateReport, 0, len(h.config.Durations))
	for _, d := range h.config.Durations {
		h.log.Infof("Generating %ds clips from %s into %s", d, src, dest)
		rep, err := gen.GenerateFrom(ctx, entries, dest, d)
		if rep != nil {
			reports = append(reports, GenerateReport{Duration: d, Clips: rep.Clips, Skipped: rep.Skipped})
		}
		if err != nil {
			return reports, fmt.Errorf("generating %ds clips: %w", d, err)
		}
		degenerate := 0
		for _, c := range rep.Clips {
			if c.Degenerate {
				degenerate++
			}
		}
		h.log.Infof("%ds: %d clips, %d skipped, %d sampled from 0", d, len(rep.Clips), len(rep.Skipped), degenerate)
	}
	return reports, nil
}

func (h *Harness) hasDuration(d int) bool {
	return slices.Contains(h.config.Durations, d)
}
