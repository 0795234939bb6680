package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/himanishpuri/dnabench/internal/config"
	"github.com/himanishpuri/dnabench/pkg/dnabench"
	"github.com/himanishpuri/dnabench/pkg/logger"
)

// Global flags
var (
	configPath string
	dbPath     string
	logLevel   string
	logFile    string
	noProgress bool
)

func init() {
	// Global flags that can be used with any command
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (default: ./dnabench.yaml or ~/.config/dnabench/config.yaml)")
	flag.StringVar(&dbPath, "db", "", "Path to the SQLite run store (env: DNABENCH_DB_PATH)")
	flag.StringVar(&logLevel, "log-level", "", "Console log level: debug, info, warn, error (env: DNABENCH_LOG_LEVEL)")
	flag.StringVar(&logFile, "log-file", "", "Append the full run log to this file")
	flag.BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig() (config.Config, error) {
	log := logger.GetLogger()

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	switch {
	case logLevel != "":
		lvl, ok := logger.ParseLevel(logLevel)
		if !ok {
			return cfg, fmt.Errorf("unknown log level: %s", logLevel)
		}
		log.SetLevel(lvl)
	case os.Getenv(logger.LevelEnv) != "":
		// GetLogger already applied it
	default:
		lvl, _ := logger.ParseLevel(cfg.LogLevel)
		// bars and INFO lines share the terminal
		if !noProgress && lvl == logger.INFO {
			lvl = logger.WARN
		}
		log.SetLevel(lvl)
	}
	if cfg.LogFile != "" {
		if err := log.SetFileLog(cfg.LogFile); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// createHarness builds a harness from cfg plus any command-specific options.
func createHarness(cfg config.Config, extra ...dnabench.Option) (*dnabench.Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	opts, err := cfg.HarnessOptions()
	if err != nil {
		return nil, err
	}
	if !noProgress {
		opts = append(opts, dnabench.WithProgress(newBarProgress()))
	}
	return dnabench.New(append(opts, extra...)...)
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	printBanner()

	command := flag.Arg(0)
	args := flag.Args()[1:]

	err := dispatch(command, args)
	log := logger.GetLogger()
	if err != nil && !errors.Is(err, errUsage) {
		fmt.Printf("❌ %v\n", err)
		log.Errorf("%v", err)
	}
	log.Close()
	if err != nil {
		os.Exit(1)
	}
}

// dispatch runs one subcommand. Handlers return instead of exiting so their
// deferred cleanup runs.
func dispatch(command string, args []string) error {
	switch command {
	case "generate":
		return handleGenerate(args)
	case "evaluate":
		return handleEvaluate(args)
	case "run":
		return handleRun(args)
	case "report":
		return handleReport(args)
	case "runs":
		return handleRuns(args)
	case "show":
		return handleShow(args)
	case "delete":
		return handleDelete(args)
	case "init-config":
		return handleInitConfig(args)
	}
	fmt.Printf("Unknown command: %s\n", command)
	printUsage()
	return errUsage
}

func printBanner() {
	banner := `
     _             _                     _     
  __| |_ __   __ _| |__   ___ _ __   ___| |__  
 / _' | '_ \ / _' | '_ \ / _ \ '_ \ / __| '_ \ 
| (_| | | | | (_| | |_) |  __/ | | | (__| | | |
 \__,_|_| |_|\__,_|_.__/ \___|_| |_|\___|_| |_|

      Recognition Accuracy Benchmark
`
	fmt.Println(banner)
}

func printUsage() {
	fmt.Println("dnabench - audio recognition accuracy benchmark")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --config <path>    YAML config file")
	fmt.Println("  --db <path>        SQLite run store (env: DNABENCH_DB_PATH, default: dnabench.sqlite3)")
	fmt.Println("  --log-level <lvl>  Console log level (env: DNABENCH_LOG_LEVEL)")
	fmt.Println("  --log-file <path>  Append the full log to a file")
	fmt.Println("  --no-progress      Disable progress bars")
	fmt.Println("\nUsage:")
	fmt.Println("  dnabench [global-options] generate [--src <dir>] [--dest <dir>] [--secs 1,2,3] [--seed <n>] [--padding <s>] [--policy fallback|skip]")
	fmt.Println("  dnabench [global-options] evaluate [--clips <dir>] [--results <dir>] [--secs 1,2,3] [--strict]")
	fmt.Println("  dnabench [global-options] run [--src <dir>] [--clips <dir>] [--results <dir>] [--secs 1,2,3] [--seed <n>]")
	fmt.Println("  dnabench [global-options] report <run_id> [--results <dir>]")
	fmt.Println("  dnabench [global-options] runs [--limit <n>]")
	fmt.Println("  dnabench [global-options] show <run_id>")
	fmt.Println("  dnabench [global-options] delete <run_id>")
	fmt.Println("  dnabench [global-options] init-config [--path <file>]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Cut 5, 10 and 15 second clips from ./mp3 into ./test")
	fmt.Println("  dnabench generate --src mp3 --dest test --secs 5,10,15 --seed 42")
	fmt.Println()
	fmt.Println("  # Query the engine for every clip and chart the results")
	fmt.Println("  dnabench evaluate --clips test --results results --secs 5,10,15")
	fmt.Println()
	fmt.Println("  # Re-render charts for an earlier run")
	fmt.Println("  dnabench report 0b6c1f7e-... --results old-results")
}
