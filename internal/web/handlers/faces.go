package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// FacesHandler serves extracted face records and their embeddings.
type FacesHandler struct {
	faces   catalog.FaceStore
	media   catalog.MediaStore
	vectors catalog.VectorIndex
}

// NewFacesHandler creates a handler over the given stores.
func NewFacesHandler(faces catalog.FaceStore, media catalog.MediaStore, vectors catalog.VectorIndex) *FacesHandler {
	return &FacesHandler{faces: faces, media: media, vectors: vectors}
}

// List handles GET /faces with optional subject and media filters plus
// page/limit pagination. Hidden faces are excluded unless requested.
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePagination(r)

	q := catalog.NewQuery().OrderBy(catalog.FieldFaceID, false).WithOffset(offset).WithLimit(limit)
	if s := r.URL.Query().Get("subject"); s == "true" {
		q = q.Eq(catalog.FieldSubjectInFace, true)
	}
	if p := r.URL.Query().Get("media"); p != "" {
		q = q.Eq(catalog.FieldMediaPath, p)
	}
	if r.URL.Query().Get("hidden") != "true" {
		q = q.Eq(catalog.FieldHidden, false)
	}

	faces, err := h.faces.Query(r.Context(), q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("listing faces: %v", err))
		return
	}

	total, err := h.faces.Count(r.Context(), q.WithOffset(0).WithLimit(0))
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("counting faces: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"faces": faces,
		"total": total,
	})
}

// Update handles PUT /faces/{id}: the reviewer confirms the subject in a
// face or hides a bad detection. Confirming the subject also raises the
// owning media item's subject flag so group-level filters pick it up.
func (h *FacesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectInFace *bool `json:"subject_in_face"`
		Hidden        *bool `json:"hidden"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	face, ok := h.load(w, r)
	if !ok {
		return
	}

	if req.SubjectInFace != nil {
		face.SubjectInFace = *req.SubjectInFace
	}
	if req.Hidden != nil {
		face.Hidden = *req.Hidden
	}

	if err := h.faces.Update(r.Context(), face); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("saving face: %v", err))
		return
	}

	if face.SubjectInFace {
		if err := h.raiseItemSubject(r, face.MediaPath); err != nil {
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("flagging media item: %v", err))
			return
		}
	}

	respondJSON(w, http.StatusOK, face)
}

// Vector handles GET /faces/{id}/vector: the face record merged with its
// embedding from the index. Faces whose vector was never written report a
// null embedding.
func (h *FacesHandler) Vector(w http.ResponseWriter, r *http.Request) {
	face, ok := h.load(w, r)
	if !ok {
		return
	}

	vec, err := h.vectors.Get(r.Context(), face.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("loading embedding: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"face":      face,
		"embedding": vec,
	})
}

func (h *FacesHandler) load(w http.ResponseWriter, r *http.Request) (catalog.Face, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing face ID")
		return catalog.Face{}, false
	}

	faces, err := h.faces.Query(r.Context(), catalog.NewQuery().Eq(catalog.FieldFaceID, id))
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("loading face: %v", err))
		return catalog.Face{}, false
	}
	if len(faces) == 0 {
		respondError(w, http.StatusNotFound, "face not found")
		return catalog.Face{}, false
	}
	return faces[0], true
}

func (h *FacesHandler) raiseItemSubject(r *http.Request, path string) error {
	items, err := h.media.Query(r.Context(), catalog.NewQuery().Eq(catalog.FieldPath, path))
	if err != nil {
		return err
	}
	if len(items) == 0 || items[0].HasSubject {
		return nil
	}

	item := items[0]
	item.HasSubject = true
	return h.media.Upsert(r.Context(), item)
}
