package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// MediaHandler serves catalog media items.
type MediaHandler struct {
	media catalog.MediaStore
}

// NewMediaHandler creates a handler over the given media store.
func NewMediaHandler(media catalog.MediaStore) *MediaHandler {
	return &MediaHandler{media: media}
}

// List handles GET /media with optional status, group and classification
// filters plus page/limit pagination.
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePagination(r)

	q := catalog.NewQuery().OrderBy(catalog.FieldPath, false).WithOffset(offset).WithLimit(limit)
	if s := r.URL.Query().Get("status"); s != "" {
		q = q.Eq(catalog.FieldStatus, catalog.RecognitionStatus(s))
	}
	if g := r.URL.Query().Get("group"); g != "" {
		q = q.Eq(catalog.FieldGroupName, g)
	}
	if c := r.URL.Query().Get("classification"); c != "" {
		q = q.Eq(catalog.FieldClassification, c)
	}

	items, err := h.media.Query(r.Context(), q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("listing media: %v", err))
		return
	}

	total, err := h.media.Count(r.Context(), q.WithOffset(0).WithLimit(0))
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("counting media: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

// UpdateClassification handles PUT /media/classification: the reviewer
// assigns a free-form label to one item.
func (h *MediaHandler) UpdateClassification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path           string `json:"path"`
		Classification string `json:"classification"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Classification == "" {
		req.Classification = catalog.NoClassification
	}

	h.updateItem(w, r, req.Path, func(item *catalog.MediaItem) {
		item.Classification = req.Classification
	})
}

// UpdateSubject handles PUT /media/subject: the reviewer marks whether the
// tracked subject appears in the item.
func (h *MediaHandler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path       string `json:"path"`
		HasSubject bool   `json:"has_subject"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	h.updateItem(w, r, req.Path, func(item *catalog.MediaItem) {
		item.HasSubject = req.HasSubject
	})
}

func (h *MediaHandler) updateItem(w http.ResponseWriter, r *http.Request, path string, mutate func(*catalog.MediaItem)) {
	items, err := h.media.Query(r.Context(), catalog.NewQuery().Eq(catalog.FieldPath, path))
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("loading media item: %v", err))
		return
	}
	if len(items) == 0 {
		respondError(w, http.StatusNotFound, "media item not found")
		return
	}

	item := items[0]
	mutate(&item)
	if err := h.media.Upsert(r.Context(), item); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("saving media item: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, item)
}
