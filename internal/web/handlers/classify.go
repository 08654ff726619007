package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/tomasmach/photo-triage/internal/ai"
	"github.com/tomasmach/photo-triage/internal/catalog"
)

// ClassifyHandler suggests classification labels using a vision model.
// Only registered when an AI provider is configured.
type ClassifyHandler struct {
	provider ai.Provider
	media    catalog.MediaStore
	labels   []string
}

// NewClassifyHandler creates a handler over the given provider and label set.
func NewClassifyHandler(provider ai.Provider, media catalog.MediaStore, labels []string) *ClassifyHandler {
	return &ClassifyHandler{provider: provider, media: media, labels: labels}
}

// Suggest handles POST /classify/suggest: asks the vision model for labels
// for one item. The suggestion is returned to the reviewer, not written to
// the catalog; applying it is a separate classification update.
func (h *ClassifyHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	items, err := h.media.Query(r.Context(), catalog.NewQuery().Eq(catalog.FieldPath, req.Path))
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("loading media item: %v", err))
		return
	}
	if len(items) == 0 {
		respondError(w, http.StatusNotFound, "media item not found")
		return
	}
	item := items[0]
	if item.Type != catalog.TypePhoto {
		respondError(w, http.StatusBadRequest, "only photos can be classified")
		return
	}

	data, err := os.ReadFile(item.Path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("reading image: %v", err))
		return
	}

	suggestion, err := h.provider.SuggestLabels(r.Context(), data, &ai.ItemContext{
		Name:      item.Name,
		TakenAt:   item.TakenAt,
		Camera:    item.Camera,
		GroupName: item.GroupName,
	}, h.labels)
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("suggesting labels: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"provider":   h.provider.Name(),
		"suggestion": suggestion,
	})
}
