package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomasmach/photo-triage/internal/recognition"
)

// RecognitionHandler exposes the recognition engine control surface.
type RecognitionHandler struct {
	engine *recognition.Engine
}

// NewRecognitionHandler creates a handler over the given engine.
func NewRecognitionHandler(engine *recognition.Engine) *RecognitionHandler {
	return &RecognitionHandler{engine: engine}
}

// Start handles POST /recognition/start. Starting an engine that is already
// working is a no-op; the response carries the current status either way.
func (h *RecognitionHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Start(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("starting recognition: %v", err))
		return
	}
	h.respondStatus(w, r)
}

// Stop handles POST /recognition/stop. Cancellation is cooperative: the
// in-flight image finishes before the worker halts, so the status returned
// here may still say working.
func (h *RecognitionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	h.respondStatus(w, r)
}

// Retry handles POST /recognition/retry: failed items go back into the
// queue and the worker starts over pending and retried items.
func (h *RecognitionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Retry(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("retrying failed items: %v", err))
		return
	}
	h.respondStatus(w, r)
}

// Status handles GET /recognition/status.
func (h *RecognitionHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.respondStatus(w, r)
}

func (h *RecognitionHandler) respondStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("computing status: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Events handles GET /recognition/events: a server-sent event stream of
// status snapshots, one per second, until the run leaves the working state
// or the client disconnects. The final snapshot is always sent.
func (h *RecognitionHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		status, err := h.engine.Status(r.Context())
		if err != nil {
			return
		}
		sendSSEEvent(w, flusher, "status", status)
		if status.State != recognition.StateWorking {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
