package analysis

import "errors"

// Sentinel kinds for input-contract violations. The one-pass matcher depends
// on the sort invariants; violating them silently would corrupt every
// downstream statistic, so they are rejected instead.
var (
	ErrNotesUnsorted  = errors.New("notes not sorted ascending by expected time")
	ErrEventsUnsorted = errors.New("input events not sorted ascending by time")
	ErrInvalidHold    = errors.New("hold note ends before it starts")
	ErrNegativeLane   = errors.New("negative lane index")
)
