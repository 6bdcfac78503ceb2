// Package analysis correlates a recorded stream of lane press/release
// events with a chart's notes and reconstructs, per note, how far off the
// player's actions were from the expected timing.
//
// The engine is a pure function of (notes, events, od): it holds no state
// between calls and performs no I/O. Each lane is walked exactly once with
// a forward-only cursor; the notelock rule imposes a strict sequential
// dependency on press order within a lane, so any parallelism belongs at
// the lane boundary and nowhere else.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/kaanreal/companella-sub001/internal/domain/model"
	"github.com/kaanreal/companella-sub001/internal/domain/timing"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithObserver attaches a trace observer receiving matcher decisions.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		e.obs = obs
	}
}

// Engine runs replay-to-chart timing analyses.
type Engine struct {
	obs Observer
}

// NewEngine creates an analysis engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze walks the chart and the replay event log once and produces one
// Deviation per input note, in input order, plus aggregate statistics.
//
// Notes must arrive sorted ascending by expected time and events sorted
// ascending by time within each kind; violations are rejected rather than
// silently miscomputed. OD is accepted as-is: degenerate values produce
// degenerate windows and the analysis fails safe to all-Miss.
func (e *Engine) Analyze(notes []model.Note, events []model.InputEvent, od float64) (*model.Report, error) {
	if err := validateInputs(notes, events); err != nil {
		return nil, err
	}

	scale := timing.NewScale(od)
	lanes := splitLanes(notes, events)

	// Seed every note as a forced miss; matched notes are overwritten.
	deviations := make([]model.Deviation, len(notes))
	for i, n := range notes {
		deviations[i] = model.Deviation{
			ExpectedTime: n.Time,
			Lane:         n.Lane,
			Judgement:    model.JudgementMiss,
			WasNeverHit:  true,
			IsHoldHead:   n.IsHold,
		}
	}

	ghostTaps := 0
	for _, laneID := range sortedLaneIDs(lanes) {
		ln := lanes[laneID]

		// Phase 1: correlate presses to notes.
		matches, ghosts := e.matchLane(laneID, ln, scale)
		ghostTaps += ghosts

		// Phase 2: finalize each match; hold heads wait for their tail.
		for _, m := range matches {
			n := notes[m.noteIndex]
			headDeviation := m.pressTime - n.Time

			d := model.Deviation{
				ExpectedTime: n.Time,
				ActualTime:   m.pressTime,
				Lane:         n.Lane,
				WasNeverHit:  false,
				IsHoldHead:   n.IsHold,
			}
			if n.IsHold {
				tail := resolveTail(ln.releases, m.pressTime, n.EndTime, scale)
				d.TailDeviation = &tail
				d.Judgement = scale.JudgeHold(headDeviation, tail)
				e.trace(TraceEvent{Kind: TraceResolved, Lane: laneID, NoteTime: n.Time, EventTime: m.pressTime})
			} else {
				d.Judgement = scale.Judge(headDeviation)
			}
			deviations[m.noteIndex] = d
		}
	}

	rep := aggregate(deviations, ghostTaps)
	return &rep, nil
}

// validateInputs enforces the sort and shape contracts the one-pass matcher
// depends on.
func validateInputs(notes []model.Note, events []model.InputEvent) error {
	prev := math.Inf(-1)
	for i, n := range notes {
		if n.Lane < 0 {
			return fmt.Errorf("note %d: %w", i, ErrNegativeLane)
		}
		if n.Time < prev {
			return fmt.Errorf("note %d at %.3fms: %w", i, n.Time, ErrNotesUnsorted)
		}
		prev = n.Time
		if n.IsHold && n.EndTime < n.Time {
			return fmt.Errorf("note %d at %.3fms: %w", i, n.Time, ErrInvalidHold)
		}
	}

	// The press stream and release stream are ordered independently.
	prevPress, prevRelease := math.Inf(-1), math.Inf(-1)
	for i, ev := range events {
		if ev.Lane < 0 {
			return fmt.Errorf("event %d: %w", i, ErrNegativeLane)
		}
		if ev.IsPress {
			if ev.Time < prevPress {
				return fmt.Errorf("event %d at %.3fms: %w", i, ev.Time, ErrEventsUnsorted)
			}
			prevPress = ev.Time
		} else {
			if ev.Time < prevRelease {
				return fmt.Errorf("event %d at %.3fms: %w", i, ev.Time, ErrEventsUnsorted)
			}
			prevRelease = ev.Time
		}
	}
	return nil
}

// splitLanes partitions notes and events into independent per-lane streams,
// preserving their relative order.
func splitLanes(notes []model.Note, events []model.InputEvent) map[int]lane {
	lanes := make(map[int]lane)
	for i, n := range notes {
		ln := lanes[n.Lane]
		ln.notes = append(ln.notes, laneNote{idx: i, note: n})
		lanes[n.Lane] = ln
	}
	for _, ev := range events {
		ln := lanes[ev.Lane]
		if ev.IsPress {
			ln.presses = append(ln.presses, ev.Time)
		} else {
			ln.releases = append(ln.releases, ev.Time)
		}
		lanes[ev.Lane] = ln
	}
	return lanes
}

// sortedLaneIDs keeps lane iteration deterministic for trace observers.
func sortedLaneIDs(lanes map[int]lane) []int {
	ids := make([]int, 0, len(lanes))
	for id := range lanes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
