package analysis

// TraceKind identifies a matcher decision reported to an Observer.
type TraceKind int

// Trace kinds emitted while walking a lane.
const (
	// TraceMatched reports a press consuming a note.
	TraceMatched TraceKind = iota
	// TraceSkipped reports a note advanced past as unreachable or notelocked.
	TraceSkipped
	// TraceGhostTap reports a press that matched no note.
	TraceGhostTap
	// TraceResolved reports a hold note finalized with its tail deviation.
	TraceResolved
)

// TraceEvent is one matcher decision. NoteTime is zero for ghost taps and
// EventTime is zero for skips, since the respective side has no counterpart.
type TraceEvent struct {
	Kind      TraceKind
	Lane      int
	NoteTime  float64
	EventTime float64
}

// Observer receives matcher decisions as they happen. It is optional and
// entirely outside the algorithm's control flow; a nil observer costs
// nothing.
type Observer func(TraceEvent)

func (e *Engine) trace(ev TraceEvent) {
	if e.obs != nil {
		e.obs(ev)
	}
}
