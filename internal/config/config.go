package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/dnabench/pkg/dnabench"
	"github.com/himanishpuri/dnabench/pkg/dnabench/classify"
	"github.com/himanishpuri/dnabench/pkg/dnabench/clip"
	"github.com/himanishpuri/dnabench/pkg/dnabench/media"
	"github.com/himanishpuri/dnabench/pkg/dnabench/recognition"
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
	"github.com/himanishpuri/dnabench/pkg/logger"
)

// Environment variables that override file settings.
const (
	EnvDBPath     = "DNABENCH_DB_PATH"
	EnvClipDir    = "DNABENCH_CLIP_DIR"
	EnvResultsDir = "DNABENCH_RESULTS_DIR"
)

// Engine describes how to query the recognition engine.
type Engine struct {
	Command       []string      `yaml:"command"`
	Timeout       time.Duration `yaml:"timeout"`
	NoMatchMarker string        `yaml:"no_match_marker"`
}

// Config contains the program configuration
type Config struct {
	SourceDir   string   `yaml:"source_dir"`
	ClipDir     string   `yaml:"clip_dir"`
	ResultsDir  string   `yaml:"results_dir"`
	DBPath      string   `yaml:"db_path"`
	Durations   []int    `yaml:"durations"`
	Extensions  []string `yaml:"extensions"`
	Padding     int      `yaml:"padding"`
	Seed        *int64   `yaml:"seed,omitempty"`
	ShortPolicy string   `yaml:"short_recording_policy"`
	Prober      string   `yaml:"prober"`
	Overwrite   bool     `yaml:"overwrite"`

	Engine      Engine                     `yaml:"engine"`
	Fingerprint classify.FingerprintParams `yaml:"fingerprint"`

	StrictMatrix bool   `yaml:"strict_matrix"`
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	ServerAddr   string `yaml:"server_addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		SourceDir:   "mp3",
		ClipDir:     "test",
		ResultsDir:  "results",
		DBPath:      storage.DefaultDBFile,
		Durations:   []int{1, 2, 3, 4, 5, 6, 7, 8},
		Extensions:  []string{"mp3", "wav"},
		Padding:     10,
		ShortPolicy: string(clip.PolicyFallback),
		Prober:      "auto",
		Engine: Engine{
			Command:       recognition.DefaultCommand(),
			Timeout:       recognition.DefaultTimeout,
			NoMatchMarker: recognition.DefaultNoMatchMarker,
		},
		Fingerprint: classify.DefaultFingerprintParams(),
		LogLevel:    "info",
		ServerAddr:  ":8080",
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
// Environment overrides are applied last.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv()
	cfg.SourceDir = ExpandHome(cfg.SourceDir)
	cfg.ClipDir = ExpandHome(cfg.ClipDir)
	cfg.ResultsDir = ExpandHome(cfg.ResultsDir)
	cfg.DBPath = ExpandHome(cfg.DBPath)
	cfg.LogFile = ExpandHome(cfg.LogFile)

	return cfg, nil
}

// ApplyEnv overrides paths from DNABENCH_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvClipDir); v != "" {
		c.ClipDir = v
	}
	if v := os.Getenv(EnvResultsDir); v != "" {
		c.ResultsDir = v
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./dnabench.yaml",
		"./dnabench.yml",
		filepath.Join(home, ".config", "dnabench", "config.yaml"),
		filepath.Join(home, ".config", "dnabench", "config.yml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "dnabench", "config.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Durations) == 0 {
		return fmt.Errorf("durations cannot be empty")
	}
	for _, d := range c.Durations {
		if d <= 0 {
			return fmt.Errorf("durations must be positive, got %d", d)
		}
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions cannot be empty")
	}
	for _, e := range c.Extensions {
		if strings.Trim(e, ". ") == "" {
			return fmt.Errorf("empty extension in %v", c.Extensions)
		}
	}

	if c.Padding < 0 {
		return fmt.Errorf("padding cannot be negative, got %d", c.Padding)
	}

	if _, err := clip.ParsePolicy(c.ShortPolicy); err != nil {
		return err
	}

	validProbers := map[string]bool{"auto": true, "ffprobe": true, "native": true}
	if !validProbers[c.Prober] {
		return fmt.Errorf("unknown prober %q, valid probers: auto, ffprobe, native", c.Prober)
	}

	if len(c.Engine.Command) == 0 {
		return fmt.Errorf("engine.command cannot be empty")
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout)
	}

	fp := c.Fingerprint
	if fp.WindowSize <= 0 || fp.SampleRate <= 0 {
		return fmt.Errorf("fingerprint window_size and sample_rate must be positive")
	}
	if fp.OverlapRatio <= 0 || fp.OverlapRatio >= 1 {
		return fmt.Errorf("fingerprint overlap_ratio must be between 0 and 1, got %.2f", fp.OverlapRatio)
	}

	if c.LogLevel != "" {
		if _, ok := logger.ParseLevel(c.LogLevel); !ok {
			return fmt.Errorf("unknown log level %q", c.LogLevel)
		}
	}

	return nil
}

// HarnessOptions translates the configuration into harness options.
func (c *Config) HarnessOptions() ([]dnabench.Option, error) {
	policy, err := clip.ParsePolicy(c.ShortPolicy)
	if err != nil {
		return nil, err
	}
	prober, err := media.NewProber(c.Prober)
	if err != nil {
		return nil, err
	}

	opts := []dnabench.Option{
		dnabench.WithDurations(c.Durations...),
		dnabench.WithExtensions(c.Extensions...),
		dnabench.WithPadding(c.Padding),
		dnabench.WithShortRecordingPolicy(policy),
		dnabench.WithOverwrite(c.Overwrite),
		dnabench.WithProber(prober),
		dnabench.WithEngineCommand(c.Engine.Command...),
		dnabench.WithEngineTimeout(c.Engine.Timeout),
		dnabench.WithNoMatchMarker(c.Engine.NoMatchMarker),
		dnabench.WithFingerprintParams(c.Fingerprint),
		dnabench.WithDBPath(c.DBPath),
		dnabench.WithStrictMatrix(c.StrictMatrix),
	}
	if c.Seed != nil {
		opts = append(opts, dnabench.WithSeed(*c.Seed))
	}
	return opts, nil
}
