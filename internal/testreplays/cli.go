package testreplays

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/kaanreal/companella-sub001/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the test replays tool.
func ShowHelp() {
	os.Stdout.WriteString(`Companella Replay Test Tool
===========================

A concurrent tool for testing the companella replay analysis service with
synthetic charts and replays whose judgements are known in advance.

Usage:
  go run cmd/test-replays/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -replays int
        Number of replays to generate and submit (default 1000)
  -notes int
        Number of notes per generated chart (default 100)
  -lanes int
        Number of lanes per generated chart (default 4)
  -od float
        Overall difficulty used for every chart (default 8.0)
  -top int
        Number of top entries to fetch from the scoreboard (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated replays (default: generated_replays_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-replays/main.go

  # Test with custom parameters
  go run cmd/test-replays/main.go -replays 5000 -workers 16 -url http://localhost:8080

  # Harder charts with verbose output
  go run cmd/test-replays/main.go -verbose -od 9.5 -notes 500
`)
}
