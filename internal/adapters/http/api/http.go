// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kaanreal/companella-sub001/internal/adapters/repository"
	"github.com/kaanreal/companella-sub001/internal/domain/dedupe"
	"github.com/kaanreal/companella-sub001/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a job for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, j model.Job) bool

	// DefaultOD is applied to submissions that omit the od field.
	DefaultOD() float64

	// Read operations expose analysis and scoreboard data.
	GetReport(ctx context.Context, analysisID string) (*model.Report, error)
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, player string) (Entry, error)
}

// Entry mirrors the read shape returned by scoreboard queries.
type Entry = repository.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	analysesHandler   *AnalysesHandler
	scoreboardHandler *ScoreboardHandler
	rankHandler       *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxScoreboardLimit int) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		analysesHandler:   NewAnalysesHandler(deps),
		scoreboardHandler: NewScoreboardHandler(deps, maxScoreboardLimit),
		rankHandler:       NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/analyses", MetricsMiddleware(s.analysesHandler.HandlePostAnalysis, "analyses"))
	mux.HandleFunc("/analyses/", MetricsMiddleware(s.analysesHandler.HandleGetAnalysis, "analysis"))
	mux.HandleFunc("/scoreboard", MetricsMiddleware(s.scoreboardHandler.HandleGetScoreboard, "scoreboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// analysisRequest mirrors the OpenAPI schema for POST /analyses.
type analysisRequest struct {
	AnalysisID string             `json:"analysis_id"`
	Player     string             `json:"player"`
	OD         *float64           `json:"od"`
	Notes      []model.Note       `json:"notes"`
	Events     []model.InputEvent `json:"events"`
}

func (a analysisRequest) validate() error {
	switch {
	case strings.TrimSpace(a.Player) == "":
		return errors.New("missing player")
	case len(a.Notes) == 0:
		return errors.New("missing notes")
	}
	if a.OD != nil && (*a.OD < 0 || *a.OD > 10) {
		return errors.New("od must be between 0 and 10")
	}
	return nil
}

type ackResponse struct {
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate"`
	AnalysisID string `json:"analysis_id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
