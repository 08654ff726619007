package handlers

import (
	"fmt"
	"net/http"

	"github.com/tomasmach/photo-triage/internal/recognition"
	"github.com/tomasmach/photo-triage/internal/scan"
)

// ScanHandler runs catalog ingestion from the web UI.
type ScanHandler struct {
	scanner *scan.Scanner
	engine  *recognition.Engine
}

// NewScanHandler creates a handler over the given scanner and engine.
func NewScanHandler(scanner *scan.Scanner, engine *recognition.Engine) *ScanHandler {
	return &ScanHandler{scanner: scanner, engine: engine}
}

// Run handles POST /scan: walks the media root, then starts the
// recognition worker over whatever the walk queued. The walk itself is
// synchronous; large libraries take a while, which the router's request
// timeout accommodates.
func (h *ScanHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.Run(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("scanning media root: %v", err))
		return
	}

	if err := h.engine.Start(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("starting recognition: %v", err))
		return
	}

	status, err := h.engine.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("computing status: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"scan":        result,
		"recognition": status,
	})
}
