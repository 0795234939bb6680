package main

import (
	"flag"
	"log"
	"strings"

	"github.com/himanishpuri/dnabench/internal/config"
	"github.com/himanishpuri/dnabench/pkg/dnabench"
)

var (
	configPath     string
	addr           string
	dbPath         string
	resultsDir     string
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	flag.StringVar(&dbPath, "db", "", "Path to the SQLite run store (env: DNABENCH_DB_PATH)")
	flag.StringVar(&resultsDir, "results", "", "Directory of rendered charts served under /results/ (env: DNABENCH_RESULTS_DIR)")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if resultsDir != "" {
		cfg.ResultsDir = resultsDir
	}
	if cfg.DBPath == "" {
		log.Fatalf("A run store is required: set db_path or --db")
	}

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	opts, err := cfg.HarnessOptions()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	harness, err := dnabench.New(opts...)
	if err != nil {
		log.Fatalf("Failed to open run store: %v", err)
	}
	defer harness.Close()

	server := NewServer(harness, &ServerConfig{
		Addr:           cfg.ServerAddr,
		DBPath:         cfg.DBPath,
		ResultsDir:     cfg.ResultsDir,
		AllowedOrigins: origins,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
