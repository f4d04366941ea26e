package probe

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/fluency/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends probe logs to stdout and to logFile. If logFile is
// empty, a timestamped filename is generated. The returned function closes
// the file.
func SetupLogging(logFile string) (func() error, error) {
	if logFile == "" {
		logFile = "probe_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file.Close, nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Leaderboard Probe
=================

Concurrent load and consistency check for the leaderboard endpoints.

Usage:
  go run ./cmd/leaderboard-probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8000")
  -users int
        Number of distinct users to create (default 1000)
  -attempts int
        Submissions per user (default 5)
  -max-damage int
        Largest damage sent in one submission (default 60)
  -top int
        Number of leaderboard entries to fetch and check (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for probe output (default: probe_log_TIMESTAMP.log)
  -verbose
        Log every failed request and the full fetched leaderboard
  -help
        Show this help message

Examples:
  go run ./cmd/leaderboard-probe -users 5000 -attempts 10 -workers 32
  go run ./cmd/leaderboard-probe -url http://localhost:9000 -verbose
`)
}
