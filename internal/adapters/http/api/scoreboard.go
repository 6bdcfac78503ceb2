// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
)

// ScoreboardDependencies defines the interface for scoreboard operations.
type ScoreboardDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// ScoreboardHandler handles scoreboard requests.
type ScoreboardHandler struct {
	deps     ScoreboardDependencies
	maxLimit int
}

// NewScoreboardHandler creates a new scoreboard handler.
func NewScoreboardHandler(deps ScoreboardDependencies, maxLimit int) *ScoreboardHandler {
	return &ScoreboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetScoreboard handles GET /scoreboard?limit=N requests.
func (h *ScoreboardHandler) HandleGetScoreboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scoreboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limitStr := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
