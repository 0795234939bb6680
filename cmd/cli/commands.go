package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/dnabench/internal/config"
	"github.com/himanishpuri/dnabench/pkg/dnabench"
	"github.com/himanishpuri/dnabench/pkg/dnabench/matrix"
	"github.com/himanishpuri/dnabench/pkg/dnabench/report"
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
	"github.com/himanishpuri/dnabench/pkg/models"
	"github.com/himanishpuri/dnabench/pkg/utils"
)

// splitPositional separates leading positional arguments from flags.
func splitPositional(args []string) (positional, flags []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return positional, args[i:]
		}
		positional = append(positional, arg)
	}
	return positional, nil
}

func parseSecs(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "sec"))
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func formatSecs(secs []int) string {
	parts := make([]string, len(secs))
	for i, s := range secs {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

// samplingFlags are shared by generate and run.
type samplingFlags struct {
	src       *string
	secs      *string
	seed      *int64
	padding   *int
	policy    *string
	overwrite *bool
}

func addSamplingFlags(fs *flag.FlagSet, cfg config.Config) samplingFlags {
	return samplingFlags{
		src:       fs.String("src", cfg.SourceDir, "Directory of reference recordings"),
		secs:      fs.String("secs", formatSecs(cfg.Durations), "Comma-separated clip durations in seconds"),
		seed:      fs.Int64("seed", 0, "Random seed for reproducible clip sampling"),
		padding:   fs.Int("padding", cfg.Padding, "Seconds kept clear at both ends of each recording"),
		policy:    fs.String("policy", cfg.ShortPolicy, "Short recording policy: fallback or skip"),
		overwrite: fs.Bool("overwrite", cfg.Overwrite, "Replace clips that already exist"),
	}
}

func (f samplingFlags) apply(fs *flag.FlagSet, cfg *config.Config) error {
	secs, err := parseSecs(*f.secs)
	if err != nil {
		return err
	}
	cfg.SourceDir = *f.src
	cfg.Durations = secs
	cfg.Padding = *f.padding
	cfg.ShortPolicy = *f.policy
	cfg.Overwrite = *f.overwrite
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "seed" {
			seed := *f.seed
			cfg.Seed = &seed
		}
	})
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// errUsage is returned after a command has printed its own usage line.
var errUsage = errors.New("usage")

func handleGenerate(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
	sf := addSamplingFlags(genCmd, cfg)
	dest := genCmd.String("dest", cfg.ClipDir, "Directory to write clips into")
	genCmd.Parse(args)

	if err := sf.apply(genCmd, &cfg); err != nil {
		return err
	}
	cfg.ClipDir = *dest
	cfg.DBPath = ""

	h, err := createHarness(cfg)
	if err != nil {
		return fmt.Errorf("failed to create harness: %w", err)
	}
	defer h.Close()

	return runGenerate(h, cfg)
}

func runGenerate(h *dnabench.Harness, cfg config.Config) error {
	fmt.Printf("\n✂️  Cutting %ss clips from %s into %s (seed %d)\n", formatSecs(cfg.Durations), cfg.SourceDir, cfg.ClipDir, h.Seed())

	ctx, cancel := signalContext()
	defer cancel()

	reports, err := h.Generate(ctx, cfg.SourceDir, cfg.ClipDir)
	for _, r := range reports {
		fmt.Printf("   %2ds: %s clips", r.Duration, humanize.Comma(int64(len(r.Clips))))
		if len(r.Skipped) > 0 {
			fmt.Printf(", %d skipped", len(r.Skipped))
		}
		fmt.Println()
		for _, s := range r.Skipped {
			fmt.Printf("        ⚠️  %s (%s): %s\n", s.Label, filepath.Base(s.Path), s.Reason)
		}
		for _, c := range r.Clips {
			if c.Degenerate {
				fmt.Printf("        ⚠️  %s (%s): too short, sampled from 0\n", c.SourceLabel, filepath.Base(c.SourcePath))
			}
		}
	}
	if err != nil {
		return fmt.Errorf("clip generation failed: %w", err)
	}
	fmt.Println("✅ Clips generated")
	return nil
}

func handleEvaluate(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	evalCmd := flag.NewFlagSet("evaluate", flag.ExitOnError)
	clips := evalCmd.String("clips", cfg.ClipDir, "Directory of generated clips")
	results := evalCmd.String("results", cfg.ResultsDir, "Directory for charts and summary.json")
	secs := evalCmd.String("secs", formatSecs(cfg.Durations), "Comma-separated clip durations to evaluate")
	strict := evalCmd.Bool("strict", cfg.StrictMatrix, "Fail if a song is missing a clip for some duration")
	evalCmd.Parse(args)

	durations, err := parseSecs(*secs)
	if err != nil {
		return err
	}
	cfg.ClipDir, cfg.ResultsDir, cfg.Durations, cfg.StrictMatrix = *clips, *results, durations, *strict

	h, err := createHarness(cfg)
	if err != nil {
		return fmt.Errorf("failed to create harness: %w", err)
	}
	defer h.Close()

	return runEvaluate(h, cfg)
}

func runEvaluate(h *dnabench.Harness, cfg config.Config) error {
	fmt.Printf("\n🔍 Querying %s for every clip in %s\n", strings.Join(cfg.Engine.Command, " "), cfg.ClipDir)

	ctx, cancel := signalContext()
	defer cancel()

	ev, err := h.Evaluate(ctx, cfg.ClipDir)
	if ev != nil && ev.RunID != "" {
		fmt.Printf("   Run: %s\n", ev.RunID)
	}
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	fmt.Printf("✅ Evaluated %d clips of %d songs", len(ev.Results), ev.Matrix.RowCount())
	if len(ev.Ignored) > 0 {
		fmt.Printf(" (%d files ignored)", len(ev.Ignored))
	}
	fmt.Println()
	for _, g := range ev.Gaps {
		fmt.Printf("   ⚠️  %s has no clip for %vs\n", g.Song, g.Missing)
	}

	out := cfg.ResultsDir
	if ev.RunID != "" {
		out = filepath.Join(out, ev.RunID)
	}
	return writeReport(h, ev.Matrix, out)
}

func writeReport(h *dnabench.Harness, m matrix.Reader, outDir string) error {
	paths, summaries, err := h.Report(m, outDir)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	var total uint64
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			total += uint64(info.Size())
		}
	}
	fmt.Printf("\n📊 Wrote %d charts (%s) and %s to %s\n\n", len(paths), humanize.Bytes(total), report.SummaryFile, outDir)
	return report.WriteSummary(os.Stdout, summaries)
}

func handleRun(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	sf := addSamplingFlags(runCmd, cfg)
	clips := runCmd.String("clips", cfg.ClipDir, "Directory to write and read clips")
	results := runCmd.String("results", cfg.ResultsDir, "Directory for charts and summary.json")
	strict := runCmd.Bool("strict", cfg.StrictMatrix, "Fail if a song is missing a clip for some duration")
	runCmd.Parse(args)

	if err := sf.apply(runCmd, &cfg); err != nil {
		return err
	}
	cfg.ClipDir, cfg.ResultsDir, cfg.StrictMatrix = *clips, *results, *strict

	h, err := createHarness(cfg)
	if err != nil {
		return fmt.Errorf("failed to create harness: %w", err)
	}
	defer h.Close()

	if err := runGenerate(h, cfg); err != nil {
		return err
	}
	return runEvaluate(h, cfg)
}

func handleReport(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	positional, flags := splitPositional(args)
	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	results := reportCmd.String("results", "", "Directory for charts (default: <results_dir>/<run_id>)")
	reportCmd.Parse(flags)

	if len(positional) != 1 {
		fmt.Println("Usage: dnabench report <run_id> [--results <dir>]")
		return errUsage
	}
	id := positional[0]
	out := *results
	if out == "" {
		out = filepath.Join(cfg.ResultsDir, id)
	}

	h, err := createHarness(cfg)
	if err != nil {
		return fmt.Errorf("failed to create harness: %w", err)
	}
	defer h.Close()

	run, m, err := h.LoadRun(id)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", id, err)
	}
	fmt.Printf("📼 Run %s (%s, %s)\n", run.ID, run.Status, humanize.Time(run.CreatedAt))
	return writeReport(h, m, out)
}

func handleRuns(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runsCmd := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := runsCmd.Int("limit", 20, "Maximum number of runs to list (0 = all)")
	runsCmd.Parse(args)

	h, err := createHarness(cfg)
	if err != nil {
		return fmt.Errorf("failed to create harness: %w", err)
	}
	defer h.Close()

	runs, err := h.Runs(*limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("\n📭 No runs recorded")
		return nil
	}

	fmt.Printf("\n📚 Found %d run(s):\n\n", len(runs))
	for i, r := range runs {
		icon := "✅"
		switch r.Status {
		case storage.StatusFailed:
			icon = "❌"
		case storage.StatusRunning:
			icon = "⏳"
		}
		fmt.Printf("%d. %s %s  %s\n", i+1, icon, r.ID, humanize.Time(r.CreatedAt))
		fmt.Printf("   Clips: %s | Durations: %ss | Seed: %d\n", r.ClipDir, formatSecs(r.Durations), r.Seed)
		if r.Error != "" {
			fmt.Printf("   Error: %s\n", r.Error)
		}
		fmt.Println()
	}
	return nil
}

func handleShow(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) != 1 {
		fmt.Println("Usage: dnabench show <run_id>")
		return errUsage
	}
	id := args[0]

	h, err := createHarness(cfg)
	if err != nil {
		return fmt.Errorf("failed to create harness: %w", err)
	}
	defer h.Close()

	run, m, err := h.LoadRun(id)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", id, err)
	}
	evals, err := h.Evaluations(id)
	if err != nil {
		return fmt.Errorf("failed to load evaluations: %w", err)
	}

	fmt.Printf("\n📼 Run %s\n", run.ID)
	fmt.Printf("   Status:   %s\n", run.Status)
	fmt.Printf("   Started:  %s\n", humanize.Time(run.CreatedAt))
	if run.FinishedAt != nil {
		fmt.Printf("   Took:     %s\n", run.FinishedAt.Sub(run.CreatedAt).Round(time.Millisecond))
	}
	fmt.Printf("   Engine:   %s\n", strings.Join(run.EngineCommand, " "))
	fmt.Printf("   Clips:    %s (%d evaluated, %d songs)\n\n", run.ClipDir, len(evals), m.RowCount())

	for _, e := range evals {
		line := fmt.Sprintf("   %-40s %-14s", filepath.Base(e.ClipPath), e.Outcome)
		if e.Outcome == string(models.OutcomeCorrect) {
			line += fmt.Sprintf(" err %+ds conf %.3f", e.TimingError, e.Confidence)
		} else if e.MatchedSongID != "" {
			line += " → " + e.MatchedSongID
		}
		fmt.Println(line)
	}
	fmt.Println()
	return report.WriteSummary(os.Stdout, report.Summarize(m))
}

func handleDelete(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) != 1 {
		fmt.Println("Usage: dnabench delete <run_id>")
		return errUsage
	}
	id := args[0]

	h, err := createHarness(cfg)
	if err != nil {
		return fmt.Errorf("failed to create harness: %w", err)
	}
	defer h.Close()

	if err := h.DeleteRun(id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	fmt.Printf("\n✅ Deleted run %s\n", id)
	return nil
}

func handleInitConfig(args []string) error {
	initCmd := flag.NewFlagSet("init-config", flag.ExitOnError)
	path := initCmd.String("path", config.GetDefaultConfigPath(), "Where to write the config file")
	force := initCmd.Bool("force", false, "Overwrite an existing file")
	initCmd.Parse(args)

	if utils.FileExists(*path) && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", *path)
	}
	if err := config.SaveConfigFile(config.DefaultConfig(), *path); err != nil {
		return err
	}
	fmt.Printf("✅ Wrote default config to %s\n", *path)
	return nil
}
