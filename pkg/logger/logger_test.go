package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.Colorize = false
	cfg.ShowTime = false
	cfg.Level = level
	return New(cfg), &buf
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger(WARN)

	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)
	log.Errorf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message leaked through WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("missing WARN line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("missing ERROR line in %q", out)
	}
}

func TestWithPrefixSharesSink(t *testing.T) {
	log, buf := newBufferLogger(INFO)
	child := log.With("[eval]").With("track1")

	log.SetLevel(DEBUG)
	child.Debugf("probe %s", "ok")

	if got := buf.String(); !strings.Contains(got, "[DEBUG] [eval] track1 probe ok") {
		t.Errorf("unexpected child output %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", DEBUG, true},
		{" WARNING ", WARN, true},
		{"error", ERROR, true},
		{"", INFO, false},
		{"loud", INFO, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFileLogCapturesBelowLevel(t *testing.T) {
	log, _ := newBufferLogger(ERROR)
	path := filepath.Join(t.TempDir(), "run.log")

	if err := log.SetFileLog(path); err != nil {
		t.Fatalf("SetFileLog: %v", err)
	}
	log.Debugf("detail %s", "kept")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "detail kept") {
		t.Errorf("file log missing debug line: %q", data)
	}
}

func TestFatalCallsExit(t *testing.T) {
	log, _ := newBufferLogger(INFO)
	code := -1
	log.s.exit = func(c int) { code = c }

	log.Fatalf("boom")

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
