package recognition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/himanishpuri/dnabench/pkg/models"
)

// ErrInvocationTimeout is returned when the engine does not answer within
// the configured timeout.
var ErrInvocationTimeout = errors.New("recognition engine timed out")

// DefaultTimeout bounds a single engine invocation.
const DefaultTimeout = 2 * time.Minute

// DefaultCommand runs the engine's own CLI in file-recognition mode.
func DefaultCommand() []string {
	return []string{"python", "dejavu.py", "-r", "file"}
}

// Invoker runs the engine on one clip and returns its raw answer.
type Invoker interface {
	Invoke(ctx context.Context, clipPath string) (string, error)
}

// CommandInvoker runs Command with the clip path appended as the last
// argument and returns whatever the process wrote to stdout.
type CommandInvoker struct {
	Command []string
	Dir     string // working directory for the engine, optional
	Timeout time.Duration
}

func (c CommandInvoker) Invoke(ctx context.Context, clipPath string) (string, error) {
	if len(c.Command) == 0 {
		return "", errors.New("no recognition command configured")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, c.Command[1:]...), clipPath)
	cmd := exec.CommandContext(runCtx, c.Command[0], args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s on %s", ErrInvocationTimeout, timeout, clipPath)
		}
		return "", fmt.Errorf("recognition engine failed on %s: %v\nstderr: %s",
			clipPath, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Recognizer answers "which song is this clip?".
type Recognizer interface {
	Recognize(ctx context.Context, clipPath string) (*models.RecognitionResult, error)
}

// EngineRecognizer runs an out-of-process engine and parses its output.
type EngineRecognizer struct {
	Invoker Invoker
	Parser  Parser
}

// NewEngineRecognizer builds a recognizer around an engine command line.
func NewEngineRecognizer(command []string, timeout time.Duration, noMatchMarker string) *EngineRecognizer {
	if len(command) == 0 {
		command = DefaultCommand()
	}
	return &EngineRecognizer{
		Invoker: CommandInvoker{Command: command, Timeout: timeout},
		Parser:  Parser{NoMatchMarker: noMatchMarker},
	}
}

func (r *EngineRecognizer) Recognize(ctx context.Context, clipPath string) (*models.RecognitionResult, error) {
	raw, err := r.Invoker.Invoke(ctx, clipPath)
	if err != nil {
		return nil, err
	}
	return r.Parser.Parse(raw)
}
