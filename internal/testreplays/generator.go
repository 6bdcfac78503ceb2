package testreplays

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"github.com/google/uuid"

	"github.com/kaanreal/companella-sub001/internal/domain/model"
	"github.com/kaanreal/companella-sub001/internal/domain/timing"
	"github.com/kaanreal/companella-sub001/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 6
)

// Chart layout constants.
const (
	noteSpacing  = 500.0 // milliseconds between consecutive notes
	holdEvery    = 5     // every n-th note is a hold
	holdDuration = 200.0
	skipEvery    = 5 // skipped note cadence for the sloppy profile
	ghostEvery   = 7 // ghost tap cadence for the ghosty profile
	ghostOffset  = 250.0
)

// Accuracy profile cases. Each profile bounds the signed deviation applied
// to presses, which in turn determines the judgement bands the service
// should produce.
const (
	caseFlawless = 0 // everything inside the MAX window
	caseSharp    = 1
	caseSteady   = 2
	caseWobbly   = 3
	caseSloppy   = 4 // wide spread plus skipped notes
	caseGhosty   = 5 // decent aim plus stray taps
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomCase returns a random profile case.
func randomCase() int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(profileDivisor))
	return n.Int64()
}

// generateReplays creates the specified number of replays with unique players.
func generateReplays(ctx context.Context, config *Config, stats *Stats) ([]Replay, error) {
	logger.Get().Info(ctx, "generating replays with unique players",
		logger.Int("numReplays", config.NumReplays),
		logger.Int("notesPer", config.NotesPer),
		logger.Float64("od", config.OD))

	replays := make([]Replay, config.NumReplays)

	players := make([]string, config.NumReplays)
	for i := 0; i < config.NumReplays; i++ {
		players[i] = uuid.New().String()
	}

	type replayResult struct {
		index  int
		replay Replay
		err    error
	}

	resultChan := make(chan replayResult, config.NumReplays)

	workerCount := minInt(config.Workers, config.NumReplays)
	replaysPerWorker := config.NumReplays / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * replaysPerWorker
		end := start + replaysPerWorker
		if worker == workerCount-1 {
			end = config.NumReplays
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- replayResult{index: i, err: ctx.Err()}
					return
				default:
					replay := generateSingleReplay(config, players[i])
					resultChan <- replayResult{index: i, replay: replay, err: nil}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumReplays; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during replay generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate replay %d: %w", result.index, result.err)
			}
			replays[result.index] = result.replay
		}
	}

	stats.ReplaysGenerated = len(replays)
	logger.Get().Info(ctx, "generated replays successfully", logger.Int("count", len(replays)))

	return replays, nil
}

// generateSingleReplay builds one chart plus a replay against it with a
// known deviation profile, so the resulting judgements can be predicted.
func generateSingleReplay(config *Config, player string) Replay {
	scale := timing.NewScale(config.OD)
	profile := randomCase()

	notes := make([]Note, 0, config.NotesPer)
	events := make([]InputEvent, 0, config.NotesPer*2)
	var expected Tally
	ghosts := 0

	for i := 0; i < config.NotesPer; i++ {
		t := noteSpacing * float64(i+1)
		lane := i % config.Lanes

		note := Note{Time: t, Lane: lane}
		if i%holdEvery == holdEvery-1 {
			note.IsHold = true
			note.EndTime = t + holdDuration
		}
		notes = append(notes, note)

		// The sloppy profile leaves some notes untouched.
		if profile == caseSloppy && i%skipEvery == skipEvery-1 {
			expected.Miss++
			continue
		}

		offset := profileOffset(profile, scale)
		press := t + offset
		events = append(events, InputEvent{Time: press, Lane: lane, IsPress: true})
		if note.IsHold {
			// Release exactly on the tail so the combined judgement is
			// decided by the head alone.
			events = append(events, InputEvent{Time: note.EndTime, Lane: lane, IsPress: false})
		}

		tallyAdd(&expected, scale.Judge(offset))

		// The ghosty profile sprays extra taps between notes, far enough
		// from both neighbours to stay outside every window.
		if profile == caseGhosty && i%ghostEvery == ghostEvery-1 {
			events = append(events, InputEvent{Time: t + ghostOffset, Lane: lane, IsPress: true})
			ghosts++
		}
	}

	// Events in a lane stay ordered by construction; global press order can
	// drift when offsets straddle the spacing midpoint, so sort per kind.
	sort.SliceStable(events, func(a, b int) bool {
		if events[a].IsPress != events[b].IsPress {
			return events[a].IsPress
		}
		return events[a].Time < events[b].Time
	})

	return Replay{
		AnalysisID:     "replay_" + uuid.New().String(),
		Player:         player,
		OD:             config.OD,
		Notes:          notes,
		Events:         events,
		Expected:       expected,
		ExpectedGhosts: ghosts,
	}
}

// profileOffset draws a signed deviation bounded by the profile's spread.
// Positive offsets are capped below the late window so the press always
// matches its own note instead of skipping past it; negative offsets are
// capped inside the miss window so the press never degrades to a ghost tap.
func profileOffset(profile int64, scale timing.Scale) float64 {
	var spread float64
	switch profile {
	case caseFlawless:
		spread = 15.0
	case caseSharp:
		spread = 40.0
	case caseSteady:
		spread = 70.0
	case caseWobbly, caseSloppy:
		spread = scale.Miss - 1
	case caseGhosty:
		spread = 40.0
	default:
		spread = 40.0
	}
	offset := (getRandomFloat()*2 - 1) * spread
	if max := scale.Late - 1; offset > max {
		offset = max
	}
	if min := -(scale.Miss - 1); offset < min {
		offset = min
	}
	return offset
}

// tallyAdd increments the band counter matching the judgement.
func tallyAdd(t *Tally, j model.Judgement) {
	switch j {
	case model.JudgementMax:
		t.Max++
	case model.JudgementPerfect:
		t.Perfect++
	case model.JudgementGreat:
		t.Great++
	case model.JudgementGood:
		t.Good++
	case model.JudgementBad:
		t.Bad++
	default:
		t.Miss++
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
