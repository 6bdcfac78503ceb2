package testreplays

import "time"

// Config holds configuration for the replay test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumReplays int           // Number of replays to generate
	NotesPer   int           // Number of notes per chart
	Lanes      int           // Number of lanes per chart
	OD         float64       // Overall difficulty used for all charts
	TopN       int           // Number of top entries to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for replays
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Note mirrors the API note schema.
type Note struct {
	Time    float64 `json:"time"`
	Lane    int     `json:"lane"`
	IsHold  bool    `json:"is_hold"`
	EndTime float64 `json:"end_time,omitempty"`
}

// InputEvent mirrors the API input event schema.
type InputEvent struct {
	Time    float64 `json:"time"`
	Lane    int     `json:"lane"`
	IsPress bool    `json:"is_press"`
}

// Replay represents a submission to POST /analyses, together with the
// judgement counts the generator expects the service to produce.
type Replay struct {
	AnalysisID string       `json:"analysis_id"`
	Player     string       `json:"player"`
	OD         float64      `json:"od"`
	Notes      []Note       `json:"notes"`
	Events     []InputEvent `json:"events"`

	Expected       Tally `json:"-"`
	ExpectedGhosts int   `json:"-"`
}

// Tally mirrors the per-band judgement counts in a report.
type Tally struct {
	Max     int `json:"max"`
	Perfect int `json:"perfect"`
	Great   int `json:"great"`
	Good    int `json:"good"`
	Bad     int `json:"bad"`
	Miss    int `json:"miss"`
}

// Report mirrors the fields of an analysis report the test verifies.
type Report struct {
	MeanDeviation float64 `json:"mean_deviation"`
	UnstableRate  float64 `json:"unstable_rate"`
	Accuracy      float64 `json:"accuracy"`
	MatchedCount  int     `json:"matched_count"`
	MissCount     int     `json:"miss_count"`
	GhostTapCount int     `json:"ghost_tap_count"`
	Judgements    Tally   `json:"judgements"`
}

// Entry represents a scoreboard entry. The API marshals entries with Go
// field names, so no tags are needed here.
type Entry struct {
	Rank          int
	Player        string
	AnalysisID    string
	Accuracy      float64
	UnstableRate  float64
	MeanDeviation float64
	MissCount     int
	GhostTapCount int
}

// AckResponse represents the response from replay submission
type AckResponse struct {
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate"`
	AnalysisID string `json:"analysis_id"`
}

// Stats holds test statistics
type Stats struct {
	ReplaysGenerated   int
	ReplaysSubmitted   int
	ReplaysSuccessful  int
	ReplaysDuplicate   int
	ReplaysFailed      int
	ReportsRetrieved   int
	ReportsVerified    int
	ReportsMismatched  int
	ScoreboardEntries  int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
