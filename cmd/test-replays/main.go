package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/kaanreal/companella-sub001/internal/testreplays"
)

// Default configuration constants.
const (
	defaultNumReplays = 1000
	defaultNotesPer   = 100
	defaultLanes      = 4
	defaultOD         = 8.0
	defaultTopN       = 50
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	testTimeout       = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numReplays = flag.Int("replays", defaultNumReplays, "Number of replays to generate and submit")
		notesPer   = flag.Int("notes", defaultNotesPer, "Number of notes per generated chart")
		lanes      = flag.Int("lanes", defaultLanes, "Number of lanes per generated chart")
		od         = flag.Float64("od", defaultOD, "Overall difficulty used for every chart")
		topN       = flag.Int("top", defaultTopN, "Number of top entries to fetch from the scoreboard")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated replays (default: generated_replays_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testreplays.ShowHelp()
		return
	}

	// Setup logging
	if err := testreplays.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	// Create test configuration
	config := &testreplays.Config{
		BaseURL:    *baseURL,
		NumReplays: *numReplays,
		NotesPer:   *notesPer,
		Lanes:      *lanes,
		OD:         *od,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the test
	if err := testreplays.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
