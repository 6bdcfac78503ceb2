package testreplays

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveReports fetches the analysis report for every submitted replay
// concurrently.
func retrieveReports(ctx context.Context, config *Config, replays []Replay, stats *Stats) (map[string]Report, error) {
	log.Printf("📑 Retrieving reports for %d replays with %d workers...", len(replays), config.Workers)

	client := newHTTPClient(config.Timeout)

	reports := make([]*Report, len(replays))
	var (
		retrieved int64
		failed    int64
	)

	var lastReport time.Time
	reportInterval := 1 * time.Second

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					analysisID := replays[index].AnalysisID
					rep, err := retrieveSingleReport(ctx, client, config.BaseURL, analysisID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get report for %s: %v", analysisID, err)
						}
					} else {
						reports[index] = rep
						atomic.AddInt64(&retrieved, 1)
					}

					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						log.Printf("📑 Reports: %d/%d retrieved (success: %d, failed: %d)",
							total, len(replays), atomic.LoadInt64(&retrieved), atomic.LoadInt64(&failed))
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range replays {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	byID := make(map[string]Report, len(replays))
	for i, rep := range reports {
		if rep != nil {
			byID[replays[i].AnalysisID] = *rep
		}
	}

	stats.ReportsRetrieved = len(byID)

	log.Printf(`✅ Report retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(byID), int(atomic.LoadInt64(&failed)))

	return byID, nil
}

// retrieveSingleReport fetches one analysis report.
func retrieveSingleReport(ctx context.Context, client *HTTPClient, baseURL, analysisID string) (*Report, error) {
	url := fmt.Sprintf("%s/analyses/%s", baseURL, analysisID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var rep Report
	if err := unmarshalJSON(body, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &rep, nil
}

// getScoreboard retrieves the top N scoreboard entries.
func getScoreboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("🥇 Getting top %d scoreboard entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/scoreboard?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var scoreboard []Entry
	if err := unmarshalJSON(body, &scoreboard); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.ScoreboardEntries = len(scoreboard)
	log.Printf("✅ Retrieved %d scoreboard entries", len(scoreboard))

	return scoreboard, nil
}
