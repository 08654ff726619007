package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// GroupsHandler serves the reviewer triage groups.
type GroupsHandler struct {
	groups catalog.GroupStore
}

// NewGroupsHandler creates a handler over the given group store.
func NewGroupsHandler(groups catalog.GroupStore) *GroupsHandler {
	return &GroupsHandler{groups: groups}
}

// List handles GET /groups with an optional selection filter and
// page/limit pagination.
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePagination(r)

	q := catalog.NewQuery().OrderBy(catalog.FieldGroupName, true).WithOffset(offset).WithLimit(limit)
	if s := r.URL.Query().Get("selection"); s != "" {
		q = q.Eq(catalog.FieldSelection, s)
	}
	if s := r.URL.Query().Get("subject"); s == "true" {
		q = q.Eq(catalog.FieldHasSubject, true)
	}

	groups, err := h.groups.Query(r.Context(), q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("listing groups: %v", err))
		return
	}

	total, err := h.groups.Count(r.Context(), q.WithOffset(0).WithLimit(0))
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("counting groups: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"groups": groups,
		"total":  total,
	})
}

// Get handles GET /groups/{name}.
func (h *GroupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// UpdateSelection handles PUT /groups/{name}/selection: the reviewer marks
// the group interesting or not.
func (h *GroupsHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selection string `json:"selection"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	switch req.Selection {
	case catalog.SelectionUnprocessed, catalog.SelectionInteresting, catalog.SelectionNotInteresting:
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown selection %q", req.Selection))
		return
	}

	group, ok := h.load(w, r)
	if !ok {
		return
	}

	group.Selection = req.Selection
	if err := h.groups.Upsert(r.Context(), group); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("saving group: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// MarkSeen handles POST /groups/{name}/seen: clears the new-items marker
// set when the scanner adds media to an already reviewed group.
func (h *GroupsHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	group, ok := h.load(w, r)
	if !ok {
		return
	}

	group.HasNewItems = false
	if err := h.groups.Upsert(r.Context(), group); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("saving group: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (h *GroupsHandler) load(w http.ResponseWriter, r *http.Request) (catalog.Group, bool) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing group name")
		return catalog.Group{}, false
	}

	group, err := h.groups.Get(r.Context(), name)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "group not found")
		return catalog.Group{}, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("loading group: %v", err))
		return catalog.Group{}, false
	}
	return group, true
}
