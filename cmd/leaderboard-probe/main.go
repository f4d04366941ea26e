package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/fluency/internal/probe"
)

// Default configuration constants.
const (
	defaultUsers        = 1000
	defaultAttempts     = 5
	defaultMaxDamage    = 60
	defaultTopN         = 50
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8000", "Base URL of the service")
		users     = flag.Int("users", defaultUsers, "Number of distinct users to create")
		attempts  = flag.Int("attempts", defaultAttempts, "Submissions per user")
		maxDamage = flag.Int("max-damage", defaultMaxDamage, "Largest damage sent in one submission")
		topN      = flag.Int("top", defaultTopN, "Number of leaderboard entries to fetch and check")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Log file for probe output (default: probe_log_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp(os.Stdout)
		return
	}

	closeLog, err := probe.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)

	_, err = probe.Run(ctx, &probe.Config{
		BaseURL:         *baseURL,
		Users:           *users,
		AttemptsPerUser: *attempts,
		MaxDamage:       *maxDamage,
		TopN:            *topN,
		Workers:         *workers,
		Timeout:         *timeout,
		LogFile:         *logFile,
		Verbose:         *verbose,
	})
	cancel()
	stop()
	_ = closeLog()

	if err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
