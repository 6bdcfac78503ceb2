package testreplays

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kaanreal/companella-sub001/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete replay test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting companella replay test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("replays", config.NumReplays),
		logger.Int("notesPer", config.NotesPer),
		logger.Int("lanes", config.Lanes),
		logger.Float64("od", config.OD),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate charts and replays
	replays, err := generateReplays(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("replay generation failed: %w", err)
	}

	// Step 3: Submit replays concurrently
	if err := submitReplays(ctx, config, replays, stats); err != nil {
		return fmt.Errorf("replay submission failed: %w", err)
	}

	// Step 4: Wait for processing
	logger.Get().Info(ctx, "waiting for replays to be analyzed")
	time.Sleep(ProcessingDelay)

	// Step 5: Retrieve analysis reports concurrently
	reports, err := retrieveReports(ctx, config, replays, stats)
	if err != nil {
		return fmt.Errorf("report retrieval failed: %w", err)
	}

	// Step 6: Get scoreboard
	scoreboard, err := getScoreboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("scoreboard retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(config, replays, reports, scoreboard, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save replays to file
	if err := saveReplaysToFile(ctx, config, replays); err != nil {
		logger.Get().Warn(ctx, "failed to save replays to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveReplaysToFile saves the generated replays to a JSON file.
func saveReplaysToFile(ctx context.Context, config *Config, replays []Replay) error {
	if len(replays) == 0 {
		return fmt.Errorf("no replays to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_replays_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, replay := range replays {
		jsonData, err := marshalJSON(replay)
		if err != nil {
			return fmt.Errorf("failed to marshal replay %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write replay %d: %w", i, err)
		}

		if i < len(replays)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "replays saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, replaysPerSecond float64

	if stats.ReplaysSubmitted > 0 {
		successRate = float64(stats.ReplaysSuccessful) / float64(stats.ReplaysSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		replaysPerSecond = float64(stats.ReplaysSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("replaysGenerated", stats.ReplaysGenerated),
		logger.Int("replaysSubmitted", stats.ReplaysSubmitted),
		logger.Int("replaysSuccessful", stats.ReplaysSuccessful),
		logger.Int("replaysDuplicate", stats.ReplaysDuplicate),
		logger.Int("replaysFailed", stats.ReplaysFailed),
		logger.Int("reportsRetrieved", stats.ReportsRetrieved),
		logger.Int("reportsVerified", stats.ReportsVerified),
		logger.Int("reportsMismatched", stats.ReportsMismatched),
		logger.Int("scoreboardEntries", stats.ScoreboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("replaysPerSecond", replaysPerSecond))
}
