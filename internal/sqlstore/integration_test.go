//go:build integration

package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tomasmach/photo-triage/internal/catalog"
	"github.com/tomasmach/photo-triage/internal/vecindex"
)

func setupTestContainer(t *testing.T) (*Store, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	store, err := Open(dsn, 0, 0)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		store.Close()
		container.Terminate(ctx)
	}

	return store, cleanup
}

func TestMediaRepository(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewMediaRepository(store)

	t.Run("UpsertAndQuery", func(t *testing.T) {
		item := catalog.MediaItem{
			Path:           "/photos/2024/img001.jpg",
			Name:           "img001.jpg",
			Size:           2048,
			Type:           catalog.TypePhoto,
			Camera:         "Canon EOS R5",
			Location:       catalog.Unknown,
			TakenAt:        "2024:06:15 14:30:00",
			Classification: catalog.NoClassification,
			HasSubject:     false,
			Status:         catalog.StatusPending,
			GroupName:      "2024-06-15",
		}
		if err := repo.Upsert(ctx, item); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}

		got, err := repo.Query(ctx, catalog.NewQuery().Eq(catalog.FieldPath, item.Path))
		if err != nil {
			t.Fatalf("Failed to query: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(got))
		}
		if got[0] != item {
			t.Errorf("Expected %+v, got %+v", item, got[0])
		}
	})

	t.Run("UpsertReplacesByPath", func(t *testing.T) {
		item := catalog.MediaItem{
			Path:   "/photos/2024/img001.jpg",
			Name:   "img001.jpg",
			Type:   catalog.TypePhoto,
			Status: catalog.StatusDone,
		}
		if err := repo.Upsert(ctx, item); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}

		count, err := repo.Count(ctx, catalog.NewQuery())
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 item after replace, got %d", count)
		}

		got, _ := repo.Query(ctx, catalog.NewQuery().Eq(catalog.FieldPath, item.Path))
		if got[0].Status != catalog.StatusDone {
			t.Errorf("Expected status done, got %s", got[0].Status)
		}
	})

	t.Run("QueryFiltersAndOrders", func(t *testing.T) {
		for i, status := range []catalog.RecognitionStatus{
			catalog.StatusPending, catalog.StatusFailed, catalog.StatusPending,
		} {
			item := catalog.MediaItem{
				Path:   fmt.Sprintf("/photos/2024/extra%02d.jpg", i),
				Name:   fmt.Sprintf("extra%02d.jpg", i),
				Type:   catalog.TypePhoto,
				Status: status,
			}
			if err := repo.Upsert(ctx, item); err != nil {
				t.Fatalf("Failed to upsert: %v", err)
			}
		}

		got, err := repo.Query(ctx, catalog.NewQuery().
			In(catalog.FieldStatus, catalog.StatusPending, catalog.StatusRetry).
			OrderBy(catalog.FieldPath, false).
			WithLimit(1))
		if err != nil {
			t.Fatalf("Failed to query: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(got))
		}
		if got[0].Path != "/photos/2024/extra00.jpg" {
			t.Errorf("Expected first pending item by path, got %s", got[0].Path)
		}
	})

	t.Run("UpdateStatusBulk", func(t *testing.T) {
		changed, err := repo.UpdateStatusBulk(ctx, catalog.StatusFailed, catalog.StatusRetry)
		if err != nil {
			t.Fatalf("Failed to bulk update: %v", err)
		}
		if changed != 1 {
			t.Errorf("Expected 1 changed row, got %d", changed)
		}

		count, _ := repo.Count(ctx, catalog.NewQuery().Eq(catalog.FieldStatus, catalog.StatusFailed))
		if count != 0 {
			t.Errorf("Expected no failed items left, got %d", count)
		}
	})
}

func TestFaceRepositorySQL(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewFaceRepository(store)

	t.Run("AddAndQuery", func(t *testing.T) {
		face := catalog.Face{
			ID:             "face-1",
			MediaPath:      "/photos/a.jpg",
			BBox:           []int{10, 20, 110, 140},
			SubjectInImage: true,
		}
		if err := repo.Add(ctx, face); err != nil {
			t.Fatalf("Failed to add face: %v", err)
		}

		got, err := repo.Query(ctx, catalog.NewQuery().Eq(catalog.FieldMediaPath, "/photos/a.jpg"))
		if err != nil {
			t.Fatalf("Failed to query faces: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 face, got %d", len(got))
		}
		if got[0].ID != "face-1" {
			t.Errorf("Expected face-1, got %s", got[0].ID)
		}
		if len(got[0].BBox) != 4 || got[0].BBox[2] != 110 {
			t.Errorf("Expected bbox [10 20 110 140], got %v", got[0].BBox)
		}
		if !got[0].SubjectInImage {
			t.Error("Expected subject_in_image to round-trip")
		}
	})

	t.Run("Update", func(t *testing.T) {
		face := catalog.Face{
			ID:            "face-1",
			MediaPath:     "/photos/a.jpg",
			BBox:          []int{10, 20, 110, 140},
			SubjectInFace: true,
		}
		if err := repo.Update(ctx, face); err != nil {
			t.Fatalf("Failed to update face: %v", err)
		}

		got, _ := repo.Query(ctx, catalog.NewQuery().Eq(catalog.FieldFaceID, "face-1"))
		if len(got) != 1 || !got[0].SubjectInFace {
			t.Error("Update not reflected")
		}
	})

	t.Run("UpdateIdenticalValues", func(t *testing.T) {
		// A no-change update must still succeed; MySQL reports zero
		// affected rows for it.
		face := catalog.Face{
			ID:            "face-1",
			MediaPath:     "/photos/a.jpg",
			BBox:          []int{10, 20, 110, 140},
			SubjectInFace: true,
		}
		if err := repo.Update(ctx, face); err != nil {
			t.Errorf("Expected no error for identical update, got %v", err)
		}
	})

	t.Run("UpdateMissingFace", func(t *testing.T) {
		err := repo.Update(ctx, catalog.Face{ID: "nonexistent"})
		if !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Count", func(t *testing.T) {
		count, err := repo.Count(ctx, catalog.NewQuery().Eq(catalog.FieldSubjectInFace, true))
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1, got %d", count)
		}
	})
}

func TestGroupRepositorySQL(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewGroupRepository(store)

	t.Run("UpsertAndGet", func(t *testing.T) {
		group := catalog.Group{
			Name:      "2024-06-15",
			Thumbnail: "/photos/a.jpg",
			Items:     []string{"/photos/a.jpg", "/photos/b.jpg"},
			Selection: catalog.SelectionUnprocessed,
		}
		if err := repo.Upsert(ctx, group); err != nil {
			t.Fatalf("Failed to upsert group: %v", err)
		}

		got, err := repo.Get(ctx, "2024-06-15")
		if err != nil {
			t.Fatalf("Failed to get group: %v", err)
		}
		if len(got.Items) != 2 || got.Items[0] != "/photos/a.jpg" {
			t.Errorf("Expected items in insertion order, got %v", got.Items)
		}
	})

	t.Run("UpsertReplacesItems", func(t *testing.T) {
		group := catalog.Group{
			Name:      "2024-06-15",
			Thumbnail: "/photos/c.jpg",
			Items:     []string{"/photos/c.jpg"},
			Selection: catalog.SelectionInteresting,
		}
		if err := repo.Upsert(ctx, group); err != nil {
			t.Fatalf("Failed to upsert group: %v", err)
		}

		got, err := repo.Get(ctx, "2024-06-15")
		if err != nil {
			t.Fatalf("Failed to get group: %v", err)
		}
		if len(got.Items) != 1 || got.Items[0] != "/photos/c.jpg" {
			t.Errorf("Expected replaced membership, got %v", got.Items)
		}
		if got.Selection != catalog.SelectionInteresting {
			t.Errorf("Expected selection to update, got %s", got.Selection)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get(ctx, "1999-01-01")
		if !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("QueryLoadsAllItems", func(t *testing.T) {
		second := catalog.Group{
			Name:      "2024-06-16",
			Items:     []string{"/photos/d.jpg", "/photos/e.jpg"},
			Selection: catalog.SelectionUnprocessed,
		}
		if err := repo.Upsert(ctx, second); err != nil {
			t.Fatalf("Failed to upsert group: %v", err)
		}

		groups, err := repo.Query(ctx, catalog.NewQuery().OrderBy(catalog.FieldGroupName, false))
		if err != nil {
			t.Fatalf("Failed to query groups: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("Expected 2 groups, got %d", len(groups))
		}
		if len(groups[0].Items) != 1 || len(groups[1].Items) != 2 {
			t.Errorf("Expected items loaded per group, got %v and %v", groups[0].Items, groups[1].Items)
		}
	})

	t.Run("CountBySelection", func(t *testing.T) {
		count, err := repo.Count(ctx, catalog.NewQuery().Eq(catalog.FieldSelection, catalog.SelectionUnprocessed))
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1, got %d", count)
		}
	})
}

func TestVectorIndexOnSharedPool(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	index := vecindex.NewPGVector(store.DB(), 4)

	if err := index.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}

	vectors := map[string][]float32{
		"face-a": {1, 0, 0, 0},
		"face-b": {0.9, 0.1, 0, 0},
		"face-c": {0, 1, 0, 0},
	}
	for id, vec := range vectors {
		if err := index.Add(ctx, id, vec); err != nil {
			t.Fatalf("Failed to add %s: %v", id, err)
		}
	}

	t.Run("Get", func(t *testing.T) {
		vec, err := index.Get(ctx, "face-a")
		if err != nil {
			t.Fatalf("Failed to get: %v", err)
		}
		if len(vec) != 4 || vec[0] != 1 {
			t.Errorf("Expected [1 0 0 0], got %v", vec)
		}

		missing, err := index.Get(ctx, "face-x")
		if err != nil {
			t.Fatalf("Failed to get missing: %v", err)
		}
		if missing != nil {
			t.Errorf("Expected nil for missing face, got %v", missing)
		}
	})

	t.Run("SearchAscending", func(t *testing.T) {
		matches, err := index.Search(ctx, []float32{1, 0, 0, 0}, 3)
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}
		if len(matches) != 3 {
			t.Fatalf("Expected 3 matches, got %d", len(matches))
		}
		if matches[0].FaceID != "face-a" {
			t.Errorf("Expected exact match first, got %s", matches[0].FaceID)
		}
		for i := 1; i < len(matches); i++ {
			if matches[i].Distance < matches[i-1].Distance {
				t.Error("Distances not sorted ascending")
			}
		}
	})

	t.Run("Count", func(t *testing.T) {
		count, err := index.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected 3, got %d", count)
		}
	})
}

func TestMigrationsRecorded(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	applied, err := store.appliedMigrations(ctx)
	if err != nil {
		t.Fatalf("Failed to get applied migrations: %v", err)
	}
	if !applied["001_init.sql"] {
		t.Error("Expected 001_init.sql to be recorded")
	}

	// Running again must be a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Errorf("Expected repeated migrate to succeed, got %v", err)
	}
}
