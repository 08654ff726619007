package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomasmach/photo-triage/internal/catalog"
	"github.com/tomasmach/photo-triage/internal/catalog/mock"
)

// writeFiles lays out a fake media tree. WhatsApp-style names make the
// capture dates deterministic regardless of whether exiftool is installed.
func writeFiles(t *testing.T, root string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, name := range names {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
		paths[i] = path
	}
	return paths
}

func TestRunIngestsMediaTree(t *testing.T) {
	root := t.TempDir()
	paths := writeFiles(t, root,
		"IMG-20190315-WA0001.jpg",
		"IMG-20190315-WA0002.jpg",
		"sub/VID-20201212-WA0005.mp4",
		"notes.txt",
		".hidden/IMG-20190315-WA0009.jpg",
	)

	media := mock.NewMockMediaStore()
	groups := mock.NewMockGroupStore()
	s := New(media, groups, root)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Items != 3 || result.Added != 3 || result.Updated != 0 {
		t.Errorf("expected 3 added items, got %+v", result)
	}
	if result.Groups != 2 {
		t.Errorf("expected 2 groups, got %d", result.Groups)
	}

	photo, ok := media.Item(paths[0])
	if !ok {
		t.Fatal("expected first photo in catalog")
	}
	if photo.Type != catalog.TypePhoto {
		t.Errorf("expected photo type, got %q", photo.Type)
	}
	if photo.Status != catalog.StatusPending {
		t.Errorf("expected pending status, got %q", photo.Status)
	}
	if photo.Camera != "whatsapp" {
		t.Errorf("expected whatsapp camera, got %q", photo.Camera)
	}
	if photo.TakenAt != "2019:03:15 00:00:00" {
		t.Errorf("expected whatsapp date, got %q", photo.TakenAt)
	}
	if photo.GroupName != "2019-03-15" {
		t.Errorf("expected date bucket group, got %q", photo.GroupName)
	}

	video, ok := media.Item(paths[2])
	if !ok {
		t.Fatal("expected video in catalog")
	}
	if video.Type != catalog.TypeVideo {
		t.Errorf("expected video type, got %q", video.Type)
	}

	if _, ok := media.Item(paths[3]); ok {
		t.Error("expected non-media file to be skipped")
	}
	if _, ok := media.Item(paths[4]); ok {
		t.Error("expected file under dot directory to be skipped")
	}

	group, ok := groups.Group("2019-03-15")
	if !ok {
		t.Fatal("expected 2019-03-15 group")
	}
	if len(group.Items) != 2 || group.Items[0] != paths[0] {
		t.Errorf("expected both photos ordered by path, got %v", group.Items)
	}
	if group.Thumbnail != paths[0] {
		t.Errorf("expected first item as thumbnail, got %q", group.Thumbnail)
	}
	if group.Selection != catalog.SelectionUnprocessed {
		t.Errorf("expected unprocessed selection, got %q", group.Selection)
	}
}

func TestRunPreservesExistingItemState(t *testing.T) {
	root := t.TempDir()
	paths := writeFiles(t, root,
		"IMG-20190315-WA0001.jpg",
		"IMG-20190315-WA0002.jpg",
	)

	media := mock.NewMockMediaStore()
	media.AddItem(catalog.MediaItem{
		Path:           paths[0],
		Type:           catalog.TypePhoto,
		Status:         catalog.StatusDone,
		Classification: "Dog",
		HasSubject:     true,
	})
	groups := mock.NewMockGroupStore()
	s := New(media, groups, root)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Added != 1 || result.Updated != 1 {
		t.Errorf("expected 1 added and 1 updated, got %+v", result)
	}

	item, _ := media.Item(paths[0])
	if item.Status != catalog.StatusDone {
		t.Errorf("expected recognition status preserved, got %q", item.Status)
	}
	if item.Classification != "Dog" {
		t.Errorf("expected classification preserved, got %q", item.Classification)
	}
	if !item.HasSubject {
		t.Error("expected subject flag preserved")
	}

	fresh, _ := media.Item(paths[1])
	if fresh.Status != catalog.StatusPending {
		t.Errorf("expected new item pending, got %q", fresh.Status)
	}
}

func TestRunFlagsNewItemsInInterestingGroup(t *testing.T) {
	root := t.TempDir()
	paths := writeFiles(t, root,
		"IMG-20190315-WA0001.jpg",
		"IMG-20190315-WA0002.jpg",
	)

	media := mock.NewMockMediaStore()
	groups := mock.NewMockGroupStore()
	groups.AddGroup(catalog.Group{
		Name:      "2019-03-15",
		Thumbnail: "old-thumbnail.jpg",
		Items:     []string{paths[0]},
		Selection: catalog.SelectionInteresting,
	})
	s := New(media, groups, root)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	group, _ := groups.Group("2019-03-15")
	if !group.HasNewItems {
		t.Error("expected new item to flag an interesting group")
	}
	if group.Selection != catalog.SelectionInteresting {
		t.Errorf("expected selection preserved, got %q", group.Selection)
	}
	if group.Thumbnail != "old-thumbnail.jpg" {
		t.Errorf("expected thumbnail preserved, got %q", group.Thumbnail)
	}
	if len(group.Items) != 2 {
		t.Errorf("expected membership replaced with walk result, got %v", group.Items)
	}
}

func TestRunLeavesUnprocessedGroupUnflagged(t *testing.T) {
	root := t.TempDir()
	paths := writeFiles(t, root,
		"IMG-20190315-WA0001.jpg",
		"IMG-20190315-WA0002.jpg",
	)

	media := mock.NewMockMediaStore()
	groups := mock.NewMockGroupStore()
	groups.AddGroup(catalog.Group{
		Name:      "2019-03-15",
		Items:     []string{paths[0]},
		Selection: catalog.SelectionUnprocessed,
	})
	s := New(media, groups, root)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	group, _ := groups.Group("2019-03-15")
	if group.HasNewItems {
		t.Error("expected no flag on an unprocessed group")
	}
}

func TestCountMedia(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"IMG-20190315-WA0001.jpg",
		"sub/VID-20201212-WA0005.mp4",
		"notes.txt",
	)

	s := New(mock.NewMockMediaStore(), mock.NewMockGroupStore(), root)
	count, err := s.CountMedia()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 media files, got %d", count)
	}
}

func TestRunCallsOnFileHook(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"IMG-20190315-WA0001.jpg",
		"IMG-20190315-WA0002.jpg",
	)

	s := New(mock.NewMockMediaStore(), mock.NewMockGroupStore(), root)
	var seen []string
	s.OnFile = func(path string) { seen = append(seen, path) }

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("expected hook for each media file, got %d calls", len(seen))
	}
}

func TestRunPropagatesCatalogErrors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "IMG-20190315-WA0001.jpg")

	media := mock.NewMockMediaStore()
	media.UpsertError = errors.New("disk full")
	s := New(media, mock.NewMockGroupStore(), root)

	if _, err := s.Run(context.Background()); err == nil {
		t.Error("expected catalog write error to abort the scan")
	}
}
