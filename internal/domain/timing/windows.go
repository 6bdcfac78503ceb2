// Package timing maps overall difficulty to hit windows and judgement bands.
//
// The window formulas are the authoritative contract for the ruleset being
// reproduced; a 1 ms discrepancy moves notes across band boundaries. OD is
// deliberately not clamped: out-of-range values produce degenerate windows
// and every note degrades to a Miss instead of aborting the analysis.
package timing

// Window formula constants, all in milliseconds.
const (
	missBase    = 188
	lateBase    = 127
	releaseBase = 151
	perfectBase = 64
	greatBase   = 97
	odStep      = 3

	// maxWindow is the fixed band for a MAX judgement; it does not scale
	// with OD.
	maxWindow = 16.5
)

// MissWindow is the maximum number of milliseconds a press may occur before
// a note's expected time and still be eligible to hit it.
func MissWindow(od float64) float64 { return missBase - odStep*od }

// LateWindow is the maximum number of milliseconds a press may occur after a
// regular note's expected time and still hit it. For a hold note the bound
// applies relative to the note's end time.
func LateWindow(od float64) float64 { return lateBase - odStep*od }

// ReleaseWindow bounds how far from a hold note's end time a release may
// occur and still be judged.
func ReleaseWindow(od float64) float64 { return releaseBase - odStep*od }

// Scale bundles every OD-derived bound so an analysis computes them once.
type Scale struct {
	Miss    float64 // early eligibility bound
	Late    float64 // late hit bound, also the Good band edge
	Release float64 // release tolerance, also the Bad band edge

	perfect float64
	great   float64
}

// NewScale derives all window bounds for the given overall difficulty.
func NewScale(od float64) Scale {
	return Scale{
		Miss:    MissWindow(od),
		Late:    LateWindow(od),
		Release: ReleaseWindow(od),
		perfect: perfectBase - odStep*od,
		great:   greatBase - odStep*od,
	}
}
