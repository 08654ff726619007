package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/tomasmach/photo-triage/internal/similarity"
)

// SimilarityHandler drives subject search over the triage groups.
type SimilarityHandler struct {
	engine    *similarity.Engine
	threshold float64
}

// NewSimilarityHandler creates a handler over the given engine. The
// threshold is the default cosine distance cutoff, overridable per request.
func NewSimilarityHandler(engine *similarity.Engine, threshold float64) *SimilarityHandler {
	return &SimilarityHandler{engine: engine, threshold: threshold}
}

// FlagGroups handles POST /similarity/groups: walks every unflagged group
// looking for the confirmed subject. The calculation runs in the
// background; progress is available from GET /similarity/status. Returns
// 409 when a calculation is already in flight.
func (h *SimilarityHandler) FlagGroups(w http.ResponseWriter, r *http.Request) {
	threshold := h.threshold
	var req struct {
		Threshold *float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold <= 0 || threshold >= 2 {
		respondError(w, http.StatusBadRequest, "threshold must be a cosine distance between 0 and 2")
		return
	}

	if h.engine.Status().Running {
		respondError(w, http.StatusConflict, "similarity calculation already running")
		return
	}

	go func() {
		flagged, err := h.engine.FlagGroupsWithSubject(context.Background(), threshold)
		if errors.Is(err, similarity.ErrAlreadyRunning) {
			return
		}
		if err != nil {
			log.Printf("similarity calculation failed: %v", err)
			return
		}
		log.Printf("similarity calculation flagged %d groups", flagged)
	}()

	respondJSON(w, http.StatusAccepted, map[string]any{
		"threshold": threshold,
	})
}

// Status handles GET /similarity/status.
func (h *SimilarityHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Status())
}
