// Package repository defines the scoreboard store interface and errors.
package repository

import (
	"context"

	"github.com/kaanreal/companella-sub001/internal/domain/model"
)

// Entry represents a scoreboard row: a player's best analyzed run.
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

// Store provides read/write access to the scoreboard and report archive.
type Store interface {
	// Record archives the report under analysisID and promotes it to the
	// player's scoreboard slot when the accuracy beats their previous best.
	// Returns true if the scoreboard was updated.
	Record(ctx context.Context, analysisID, player string, rep *model.Report) (bool, error)

	// GetReport returns the archived report for an analysis.
	// Returns ErrNotFound if the analysis is unknown.
	GetReport(ctx context.Context, analysisID string) (*model.Report, error)

	// Rank returns the current rank and best entry for a player.
	// Returns ErrNotFound if the player is unknown.
	Rank(ctx context.Context, player string) (Entry, error)

	// TopN returns the top-N entries ordered by accuracy desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of players on the scoreboard.
	Count(ctx context.Context) int
}
