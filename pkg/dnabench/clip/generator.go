package clip

import (
	"context"
	"fmt"
	"strings"

	"github.com/himanishpuri/dnabench/pkg/dnabench/corpus"
	"github.com/himanishpuri/dnabench/pkg/dnabench/media"
	"github.com/himanishpuri/dnabench/pkg/dnabench/sampler"
	"github.com/himanishpuri/dnabench/pkg/models"
	"github.com/himanishpuri/dnabench/pkg/utils"
)

// ShortRecordingPolicy decides what happens to a recording too short for
// the padded sampling window.
type ShortRecordingPolicy string

const (
	// PolicyFallback samples from offset zero, inside the padding, and flags
	// the clip as degenerate.
	PolicyFallback ShortRecordingPolicy = "fallback"
	// PolicySkip skips the recording.
	PolicySkip ShortRecordingPolicy = "skip"
)

// ParsePolicy validates a policy name; empty means PolicyFallback.
func ParsePolicy(name string) (ShortRecordingPolicy, error) {
	switch ShortRecordingPolicy(strings.ToLower(name)) {
	case "", PolicyFallback:
		return PolicyFallback, nil
	case PolicySkip:
		return PolicySkip, nil
	}
	return "", fmt.Errorf("unknown short recording policy %q (want fallback or skip)", name)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Skipped records a source file that produced no clip.
type Skipped struct {
	Path   string
	Label  string
	Reason string
}

// Report is the outcome of one Generate call.
type Report struct {
	Clips   []models.SampledClip
	Skipped []Skipped
}

// Generator cuts one clip per source recording.
type Generator struct {
	Prober     media.Prober
	Extractor  media.Extractor
	Sampler    *sampler.Sampler
	Log        Logger
	Extensions []string
	Padding    int
	Policy     ShortRecordingPolicy
	Overwrite  bool
	// OnClip, if set, is called after every source file is handled.
	OnClip func()
}

// Generate writes a clip of duration seconds for every recording under src
// whose extension is configured, into dest. dest is left out of the scan
// when it lies inside src.
func (g *Generator) Generate(ctx context.Context, src, dest string, duration int) (*Report, error) {
	if !utils.DirExists(src) {
		return nil, fmt.Errorf("source directory %s does not exist", src)
	}
	entries, err := corpus.List(src, g.Extensions, dest)
	if err != nil {
		return nil, err
	}
	g.Log.Debugf("Found %d recordings under %s", len(entries), src)
	return g.GenerateFrom(ctx, entries, dest, duration)
}

// GenerateFrom writes a clip of duration seconds for each of entries into
// dest. Probe failures skip the file; extraction failures abort and are
// returned.
func (g *Generator) GenerateFrom(ctx context.Context, entries []models.CorpusEntry, dest string, duration int) (*Report, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("clip duration must be positive, got %d", duration)
	}
	if err := utils.MakeDir(dest); err != nil {
		return nil, fmt.Errorf("creating destination %s: %w", dest, err)
	}

	report := &Report{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		c, skip, err := g.generateOne(ctx, entry, dest, duration)
		if g.OnClip != nil {
			g.OnClip()
		}
		if err != nil {
			return report, err
		}
		if skip != nil {
			report.Skipped = append(report.Skipped, *skip)
			continue
		}
		report.Clips = append(report.Clips, *c)
	}
	return report, nil
}

func (g *Generator) generateOne(ctx context.Context, entry models.CorpusEntry, dest string, duration int) (*models.SampledClip, *Skipped, error) {
	g.Log.Infof("audiosource: %s", entry.Path)

	length, err := g.Prober.Duration(ctx, entry.Path, entry.Ext)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		g.Log.Errorf("Could not probe duration of %s: %v", entry.Path, err)
		return nil, &Skipped{Path: entry.Path, Label: corpus.Label(entry), Reason: fmt.Sprintf("duration probe failed: %v", err)}, nil
	}

	degenerate := false
	if _, _, ok := sampler.Window(length, duration, g.Padding); !ok {
		if g.Policy == PolicySkip {
			g.Log.Warnf("Skipping %s: recording too short (%ds) for a %ds clip with %ds padding",
				entry.Path, length, duration, g.Padding)
			return nil, &Skipped{Path: entry.Path, Label: corpus.Label(entry), Reason: "recording too short"}, nil
		}
		g.Log.Warnf("%s is too short (%ds) for a %ds clip with %ds padding; sampling from 0",
			entry.Path, length, duration, g.Padding)
		degenerate = true
	}
	start := g.Sampler.ChooseStartTime(length, duration, g.Padding)

	gt := models.GroundTruth{
		SongID:    entry.SongID,
		StartTime: start,
		Duration:  duration,
		Ext:       strings.TrimPrefix(entry.Ext, "."),
	}
	out := PathFor(dest, gt)

	err = g.Extractor.Extract(ctx, media.ExtractRequest{
		Input:     entry.Path,
		Output:    out,
		Start:     start,
		Duration:  duration,
		Overwrite: g.Overwrite,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("extracting clip from %s: %w", entry.Path, err)
	}

	g.Log.Debugf("Wrote %s", out)
	return &models.SampledClip{
		GroundTruth: gt,
		Path:        out,
		SourcePath:  entry.Path,
		SourceLabel: corpus.Label(entry),
		Degenerate:  degenerate,
	}, nil, nil
}
