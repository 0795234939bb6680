// Package media adapts the external media toolchain (ffprobe, ffmpeg) and
// a couple of pure-Go decoders to the harness' needs: whole-second duration
// probing and clip extraction.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/tcolgate/mp3"
)

// ErrUnsupportedFormat is returned by probes that cannot handle an extension.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Prober reports the length of a recording in whole seconds.
type Prober interface {
	Duration(ctx context.Context, path, ext string) (int, error)
}

const defaultProbeTimeout = 10 * time.Second

// timeoutOr returns d, or def when d is unset. The per-call timeout applies
// under any parent deadline; whichever is earlier wins.
func timeoutOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// FFProbe probes durations by shelling out to ffprobe.
type FFProbe struct {
	Binary  string // defaults to "ffprobe"
	Timeout time.Duration
}

type ffprobeOutput struct {
	Format struct {
		Filename string `json:"filename"`
		Duration string `json:"duration"`
		Format   string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

func (p *ffprobeOutput) hasAudio() bool {
	for _, s := range p.Streams {
		if s.CodecType == "audio" {
			return true
		}
	}
	return false
}

func (f FFProbe) Duration(ctx context.Context, path, ext string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutOr(f.Timeout, defaultProbeTimeout))
	defer cancel()

	bin := f.Binary
	if bin == "" {
		bin = "ffprobe"
	}

	args := []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams"}
	if format := demuxerFor(ext); format != "" {
		args = append(args, "-f", format)
	}
	args = append(args, path)

	out, err := exec.CommandContext(ctx, bin, args...).Output()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	if !probe.hasAudio() {
		return 0, errors.New("no audio stream found")
	}

	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", probe.Format.Duration, err)
	}
	return wholeSeconds(seconds), nil
}

// demuxerFor maps the declared extension to an ffprobe demuxer so files with
// a misleading name still fail loudly instead of being sniffed as something
// else. Unknown extensions are left to autodetection.
func demuxerFor(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp3":
		return "mp3"
	case "wav":
		return "wav"
	case "flac":
		return "flac"
	case "ogg":
		return "ogg"
	}
	return ""
}

// NativeProber decodes WAV headers and MP3 frames in-process, no toolchain
// needed.
type NativeProber struct{}

func (NativeProber) Duration(ctx context.Context, path, ext string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "wav":
		return wavDuration(path)
	case "mp3":
		return mp3Duration(ctx, path)
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

func wavDuration(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid WAV file: %s", path)
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("reading WAV duration: %w", err)
	}
	return wholeSeconds(d.Seconds()), nil
}

func mp3Duration(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("decoding MP3 frame: %w", err)
		}
		total += frame.Duration()
		frames++
		if frames%4096 == 0 && ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}
	if frames == 0 {
		return 0, fmt.Errorf("no MP3 frames in %s", path)
	}
	return wholeSeconds(total.Seconds()), nil
}

func wholeSeconds(s float64) int {
	if s <= 0 || math.IsNaN(s) {
		return 0
	}
	return int(s)
}

// ChainProber asks each prober in turn and returns the first success. When
// all fail the last error is returned, wrapped with the others.
type ChainProber []Prober

func (c ChainProber) Duration(ctx context.Context, path, ext string) (int, error) {
	var errs []error
	for _, p := range c {
		n, err := p.Duration(ctx, path, ext)
		if err == nil {
			return n, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return 0, errors.New("no probers configured")
	}
	return 0, errors.Join(errs...)
}

// NewProber returns the prober named by kind: "ffprobe", "native" or
// "auto" (native first, ffprobe as fallback).
func NewProber(kind string) (Prober, error) {
	switch strings.ToLower(kind) {
	case "", "auto":
		return ChainProber{NativeProber{}, FFProbe{}}, nil
	case "ffprobe":
		return FFProbe{}, nil
	case "native":
		return NativeProber{}, nil
	}
	return nil, fmt.Errorf("unknown prober %q (want auto, ffprobe or native)", kind)
}
