// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
)

// Judgement is the discrete band assigned to a note. Values are ordered
// worst to best so the worse of two judgements is the smaller value.
type Judgement int

// Judgement bands, worst first.
const (
	JudgementMiss Judgement = iota
	JudgementBad
	JudgementGood
	JudgementGreat
	JudgementPerfect
	JudgementMax
)

var judgementNames = [...]string{"MISS", "BAD", "GOOD", "GREAT", "PERFECT", "MAX"}

func (j Judgement) String() string {
	if j < JudgementMiss || j > JudgementMax {
		return fmt.Sprintf("Judgement(%d)", int(j))
	}
	return judgementNames[j]
}

// Worse returns the lower-scoring of the two judgements.
func (j Judgement) Worse(o Judgement) Judgement {
	if o < j {
		return o
	}
	return j
}

// MarshalJSON encodes the judgement as its band name.
func (j Judgement) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.String())
}

// UnmarshalJSON decodes a band name back into a Judgement.
func (j *Judgement) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("judgement must be a string: %w", err)
	}
	for i, n := range judgementNames {
		if n == name {
			*j = Judgement(i)
			return nil
		}
	}
	return fmt.Errorf("unknown judgement %q", name)
}

// Note is a single chart object. Times are milliseconds in chart space,
// already rate- and mirror-adjusted by the caller.
type Note struct {
	Time    float64 `json:"time"`               // expected hit time
	Lane    int     `json:"lane"`               // 0-based column
	IsHold  bool    `json:"is_hold"`            // long note flag
	EndTime float64 `json:"end_time,omitempty"` // hold release time, meaningful only when IsHold
}

// InputEvent is a single press or release extracted from a replay.
// Time is real elapsed milliseconds and is never rescaled.
type InputEvent struct {
	Time    float64 `json:"time"`
	Lane    int     `json:"lane"`
	IsPress bool    `json:"is_press"`
}

// Deviation is the per-note outcome of an analysis.
type Deviation struct {
	ExpectedTime float64   `json:"expected_time"`
	ActualTime   float64   `json:"actual_time"`
	Lane         int       `json:"lane"`
	Judgement    Judgement `json:"judgement"`
	// WasNeverHit is true only when no press was ever associated with the
	// note; it forces a Miss regardless of any computed value.
	WasNeverHit   bool     `json:"was_never_hit"`
	IsHoldHead    bool     `json:"is_hold_head"`
	TailDeviation *float64 `json:"tail_deviation,omitempty"`
}

// HeadDeviation returns the signed press offset for a matched note.
func (d Deviation) HeadDeviation() float64 {
	return d.ActualTime - d.ExpectedTime
}

// Tally counts judgements per band.
type Tally struct {
	Max     int `json:"max"`
	Perfect int `json:"perfect"`
	Great   int `json:"great"`
	Good    int `json:"good"`
	Bad     int `json:"bad"`
	Miss    int `json:"miss"`
}

// Add records one judgement in the tally.
func (t *Tally) Add(j Judgement) {
	switch j {
	case JudgementMax:
		t.Max++
	case JudgementPerfect:
		t.Perfect++
	case JudgementGreat:
		t.Great++
	case JudgementGood:
		t.Good++
	case JudgementBad:
		t.Bad++
	case JudgementMiss:
		t.Miss++
	}
}

// Total returns the number of judgements recorded.
func (t Tally) Total() int {
	return t.Max + t.Perfect + t.Great + t.Good + t.Bad + t.Miss
}

// Report is the complete outcome of one analysis. Deviations appear in the
// original note order, exactly one entry per input note.
type Report struct {
	Deviations []Deviation `json:"deviations"`

	MeanDeviation float64 `json:"mean_deviation"`
	UnstableRate  float64 `json:"unstable_rate"`
	Accuracy      float64 `json:"accuracy"`

	MatchedCount  int   `json:"matched_count"`
	MissCount     int   `json:"miss_count"`
	GhostTapCount int   `json:"ghost_tap_count"`
	Judgements    Tally `json:"judgements"`
}

// Job is an analysis submission flowing through the queue.
type Job struct {
	AnalysisID string       // unique id for idempotency
	Player     string       // player identifier for the scoreboard
	OD         float64      // overall difficulty controlling window widths
	Notes      []Note       // chart notes, ascending by Time
	Events     []InputEvent // replay events, ascending by Time per kind
}
