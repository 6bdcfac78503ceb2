// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kaanreal/companella-sub001/internal/domain/dedupe"
	"github.com/kaanreal/companella-sub001/internal/domain/model"
)

// AnalysisDependencies defines the interface for analysis submission and
// report lookup.
type AnalysisDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, j model.Job) bool
	DefaultOD() float64
	GetReport(ctx context.Context, analysisID string) (*model.Report, error)
}

// AnalysesHandler handles replay analysis requests.
type AnalysesHandler struct {
	deps AnalysisDependencies
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps AnalysisDependencies) *AnalysesHandler {
	return &AnalysesHandler{deps: deps}
}

// HandlePostAnalysis handles POST /analyses requests.
func (h *AnalysesHandler) HandlePostAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analysis"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.AnalysisID == "" {
		req.AnalysisID = uuid.NewString()
	}
	od := h.deps.DefaultOD()
	if req.OD != nil {
		od = *req.OD
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.AnalysisID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, AnalysisID: req.AnalysisID})
		return
	}

	job := model.Job{
		AnalysisID: req.AnalysisID,
		Player:     req.Player,
		OD:         od,
		Notes:      req.Notes,
		Events:     req.Events,
	}

	// Try to enqueue for async processing
	if ok := h.deps.Enqueue(r.Context(), job); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), req.AnalysisID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false, AnalysisID: req.AnalysisID})
}

// HandleGetAnalysis handles GET /analyses/{analysis_id} requests.
func (h *AnalysesHandler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /analyses/
	path := strings.TrimPrefix(r.URL.Path, "/analyses/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rep, err := h.deps.GetReport(r.Context(), path)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
