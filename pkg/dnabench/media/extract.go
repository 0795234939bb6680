package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/himanishpuri/dnabench/pkg/utils"
)

// ExtractRequest describes one clip to cut out of a source recording.
type ExtractRequest struct {
	Input     string
	Output    string
	Start     int // seconds
	Duration  int // seconds
	Overwrite bool
}

func (r ExtractRequest) validate() error {
	switch {
	case r.Input == "":
		return errors.New("extract: empty input path")
	case r.Output == "":
		return errors.New("extract: empty output path")
	case r.Start < 0:
		return fmt.Errorf("extract: negative start %d", r.Start)
	case r.Duration <= 0:
		return fmt.Errorf("extract: non-positive duration %d", r.Duration)
	}
	return nil
}

// Extractor materialises clips on disk.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) error
}

const defaultExtractTimeout = 60 * time.Second

// FFmpeg cuts clips with the ffmpeg binary.
type FFmpeg struct {
	Binary  string // defaults to "ffmpeg"
	Timeout time.Duration
}

func (f FFmpeg) args(req ExtractRequest) []string {
	overwrite := "-n"
	if req.Overwrite {
		overwrite = "-y"
	}
	return []string{
		overwrite,
		"-v", "error",
		"-ss", strconv.Itoa(req.Start),
		"-t", strconv.Itoa(req.Duration),
		"-i", req.Input,
		req.Output,
	}
}

func (f FFmpeg) Extract(ctx context.Context, req ExtractRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOr(f.Timeout, defaultExtractTimeout))
	defer cancel()

	if err := utils.MakeDir(filepath.Dir(req.Output)); err != nil {
		return fmt.Errorf("creating clip directory: %w", err)
	}

	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin, f.args(req)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg interrupted for %s: %w", req.Input, ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed for %s: %w (%s)", req.Input, err, bytes.TrimSpace(out))
	}
	return nil
}
