package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomasmach/photo-triage/internal/catalog"
	"github.com/tomasmach/photo-triage/internal/catalog/mock"
)

func newFacesHandler() (*FacesHandler, *mock.MockFaceStore, *mock.MockMediaStore, *mock.MockVectorIndex) {
	faces := mock.NewMockFaceStore()
	media := mock.NewMockMediaStore()
	vectors := mock.NewMockVectorIndex()
	return NewFacesHandler(faces, media, vectors), faces, media, vectors
}

func TestFacesList_SubjectFilter(t *testing.T) {
	handler, faces, _, _ := newFacesHandler()
	faces.AddFace(catalog.Face{ID: "f1", MediaPath: "/photos/a.jpg", SubjectInFace: true})
	faces.AddFace(catalog.Face{ID: "f2", MediaPath: "/photos/b.jpg"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faces?subject=true", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Faces []catalog.Face `json:"faces"`
		Total int            `json:"total"`
	}
	decodeBody(t, rec, &body)

	if body.Total != 1 || len(body.Faces) != 1 || body.Faces[0].ID != "f1" {
		t.Errorf("expected only the confirmed face, got %+v", body)
	}
}

func TestFacesList_HiddenExcludedByDefault(t *testing.T) {
	handler, faces, _, _ := newFacesHandler()
	faces.AddFace(catalog.Face{ID: "f1", MediaPath: "/photos/a.jpg"})
	faces.AddFace(catalog.Face{ID: "f2", MediaPath: "/photos/a.jpg", Hidden: true})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faces", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Faces []catalog.Face `json:"faces"`
	}
	decodeBody(t, rec, &body)

	if len(body.Faces) != 1 || body.Faces[0].ID != "f1" {
		t.Errorf("expected hidden face excluded, got %+v", body.Faces)
	}
}

func TestFacesUpdate_ConfirmSubjectRaisesItemFlag(t *testing.T) {
	handler, faces, media, _ := newFacesHandler()
	faces.AddFace(catalog.Face{ID: "f1", MediaPath: "/photos/a.jpg"})
	media.AddItem(photoItem("/photos/a.jpg", catalog.StatusDone))

	body := `{"subject_in_face": true}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/faces/f1", strings.NewReader(body))
	req = requestWithChiParams(req, map[string]string{"id": "f1"})
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	assertStatus(t, rec, http.StatusOK)

	face, _ := faces.Face("f1")
	if !face.SubjectInFace {
		t.Error("expected face subject flag set")
	}

	item, _ := media.Item("/photos/a.jpg")
	if !item.HasSubject {
		t.Error("expected owning item subject flag raised")
	}
}

func TestFacesUpdate_HideDoesNotTouchItem(t *testing.T) {
	handler, faces, media, _ := newFacesHandler()
	faces.AddFace(catalog.Face{ID: "f1", MediaPath: "/photos/a.jpg"})
	media.AddItem(photoItem("/photos/a.jpg", catalog.StatusDone))

	body := `{"hidden": true}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/faces/f1", strings.NewReader(body))
	req = requestWithChiParams(req, map[string]string{"id": "f1"})
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	assertStatus(t, rec, http.StatusOK)

	face, _ := faces.Face("f1")
	if !face.Hidden {
		t.Error("expected face hidden")
	}

	item, _ := media.Item("/photos/a.jpg")
	if item.HasSubject {
		t.Error("hiding a face must not flag the item")
	}
}

func TestFacesUpdate_NotFound(t *testing.T) {
	handler, _, _, _ := newFacesHandler()

	body := `{"hidden": true}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/faces/missing", strings.NewReader(body))
	req = requestWithChiParams(req, map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	assertStatus(t, rec, http.StatusNotFound)
}

func TestFacesVector(t *testing.T) {
	handler, faces, _, vectors := newFacesHandler()
	faces.AddFace(catalog.Face{ID: "f1", MediaPath: "/photos/a.jpg"})
	vectors.AddVector("f1", []float32{0.1, 0.2, 0.3})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faces/f1/vector", nil)
	req = requestWithChiParams(req, map[string]string{"id": "f1"})
	rec := httptest.NewRecorder()
	handler.Vector(rec, req)

	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Face      catalog.Face `json:"face"`
		Embedding []float32    `json:"embedding"`
	}
	decodeBody(t, rec, &body)

	if body.Face.ID != "f1" {
		t.Errorf("unexpected face %+v", body.Face)
	}
	if len(body.Embedding) != 3 {
		t.Errorf("expected 3-dim embedding, got %v", body.Embedding)
	}
}

func TestFacesVector_MissingEmbedding(t *testing.T) {
	handler, faces, _, _ := newFacesHandler()
	faces.AddFace(catalog.Face{ID: "f1", MediaPath: "/photos/a.jpg"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faces/f1/vector", nil)
	req = requestWithChiParams(req, map[string]string{"id": "f1"})
	rec := httptest.NewRecorder()
	handler.Vector(rec, req)

	// A face without a stored vector reports a null embedding, not an error
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Embedding []float32 `json:"embedding"`
	}
	decodeBody(t, rec, &body)
	if body.Embedding != nil {
		t.Errorf("expected null embedding, got %v", body.Embedding)
	}
}
