package analysis

import (
	"github.com/kaanreal/companella-sub001/internal/domain/model"
	"github.com/kaanreal/companella-sub001/internal/domain/timing"
)

// laneNote pairs a note with its index in the original note slice so the
// final report can be emitted in input order.
type laneNote struct {
	idx  int
	note model.Note
}

// lane holds one column's notes and events, each in ascending time order.
type lane struct {
	notes    []laneNote
	presses  []float64
	releases []float64
}

// match associates a consumed note with the press that hit it.
type match struct {
	noteIndex int // index into the original notes slice
	pressTime float64
}

// matchLane runs the one-pass matcher over a single lane. Notes are kept in
// a flat array with a forward-only cursor; once a note is skipped or
// consumed it is never reconsidered, which makes the pass O(presses+notes)
// and fully deterministic.
func (e *Engine) matchLane(laneID int, ln lane, scale timing.Scale) (matches []match, ghostTaps int) {
	next := 0
	for _, press := range ln.presses {
		// Advance past notes no longer reachable by this press: either
		// their late bound has passed, or the next note's time has already
		// arrived (notelock) and the current note is presumed missed.
		for next < len(ln.notes) {
			n := ln.notes[next].note
			pastLate := press-n.Time >= scale.Late
			if n.IsHold {
				pastLate = press > n.EndTime+scale.Late
			}
			notelocked := next+1 < len(ln.notes) && press >= ln.notes[next+1].note.Time
			if !pastLate && !notelocked {
				break
			}
			e.trace(TraceEvent{Kind: TraceSkipped, Lane: laneID, NoteTime: n.Time})
			next++
		}

		if next == len(ln.notes) {
			// No notes remain in the lane.
			ghostTaps++
			e.trace(TraceEvent{Kind: TraceGhostTap, Lane: laneID, EventTime: press})
			continue
		}

		target := ln.notes[next]
		headDeviation := press - target.note.Time
		if headDeviation < -scale.Miss {
			// Too early to be eligible; the press is spent, not retried.
			ghostTaps++
			e.trace(TraceEvent{Kind: TraceGhostTap, Lane: laneID, EventTime: press})
			continue
		}

		matches = append(matches, match{noteIndex: target.idx, pressTime: press})
		e.trace(TraceEvent{Kind: TraceMatched, Lane: laneID, NoteTime: target.note.Time, EventTime: press})
		next++
	}
	return matches, ghostTaps
}
