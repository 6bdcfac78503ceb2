package testreplays

import (
	"fmt"
	"log"
)

// verifyResults checks every retrieved report against the generator's
// expected judgement counts and validates scoreboard ordering.
func verifyResults(config *Config, replays []Replay, reports map[string]Report, scoreboard []Entry, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(reports) == 0 {
		return fmt.Errorf("no reports to verify")
	}

	verified := 0
	mismatched := 0
	for _, replay := range replays {
		rep, ok := reports[replay.AnalysisID]
		if !ok {
			continue
		}
		if err := verifySingleReport(replay, rep); err != nil {
			mismatched++
			if config.Verbose {
				log.Printf("⚠️  Report mismatch for %s (%s): %v", replay.AnalysisID, replay.Player, err)
			}
			continue
		}
		verified++
	}

	stats.ReportsVerified = verified
	stats.ReportsMismatched = mismatched

	if mismatched > 0 {
		log.Printf("⚠️  %d of %d reports did not match their expected judgements", mismatched, verified+mismatched)
	} else {
		log.Printf("✅ All %d reports matched their expected judgements", verified)
	}

	if len(scoreboard) > 0 {
		if err := verifyScoreboardOrder(scoreboard); err != nil {
			log.Printf("⚠️  Scoreboard consistency warning: %v", err)
		} else {
			log.Println("✅ Scoreboard ordering verified")
		}
	}

	displayTopPlayers(scoreboard)

	log.Println("✅ Result verification completed")
	return nil
}

// verifySingleReport compares a report's judgement counts against the
// generator's expectation.
func verifySingleReport(replay Replay, rep Report) error {
	exp := replay.Expected
	got := rep.Judgements

	if got != exp {
		return fmt.Errorf("judgements %+v, expected %+v", got, exp)
	}
	if rep.GhostTapCount != replay.ExpectedGhosts {
		return fmt.Errorf("ghost taps %d, expected %d", rep.GhostTapCount, replay.ExpectedGhosts)
	}
	total := got.Max + got.Perfect + got.Great + got.Good + got.Bad + got.Miss
	if total != len(replay.Notes) {
		return fmt.Errorf("judged %d notes, chart has %d", total, len(replay.Notes))
	}
	return nil
}

// verifyScoreboardOrder checks that entries descend by accuracy.
func verifyScoreboardOrder(scoreboard []Entry) error {
	for i := 1; i < len(scoreboard); i++ {
		if scoreboard[i].Accuracy > scoreboard[i-1].Accuracy {
			return fmt.Errorf("scoreboard not properly sorted: entry %d has higher accuracy than entry %d", i, i-1)
		}
	}
	return nil
}

// displayTopPlayers shows the top scoreboard entries.
func displayTopPlayers(scoreboard []Entry) {
	topN := 10
	if len(scoreboard) < topN {
		topN = len(scoreboard)
	}

	if topN == 0 {
		return
	}

	log.Printf("🏆 Top %d players on the scoreboard:", topN)
	for i := 0; i < topN; i++ {
		entry := scoreboard[i]
		log.Printf("   %d. %s - Accuracy: %.4f (UR %.1f, %d misses)",
			entry.Rank, entry.Player, entry.Accuracy, entry.UnstableRate, entry.MissCount)
	}
}
