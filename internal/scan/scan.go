// Package scan walks the media root and ingests photos and videos into the
// catalog: metadata from EXIF with file-name and mtime fallbacks, and date
// bucket groups for reviewer triage.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/barasher/go-exiftool"
	"github.com/karrick/godirwalk"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// Scanner ingests the media root into the catalog.
type Scanner struct {
	media  catalog.MediaStore
	groups catalog.GroupStore
	root   string

	// OnFile, when set, is called after each media file is ingested.
	OnFile func(path string)
}

// Result summarizes one scan run.
type Result struct {
	Items   int `json:"items"`
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Groups  int `json:"groups"`
}

// New creates a scanner over the given media root.
func New(media catalog.MediaStore, groups catalog.GroupStore, root string) *Scanner {
	return &Scanner{media: media, groups: groups, root: root}
}

// CountMedia returns the number of media files under the root, for
// progress reporting before a run.
func (s *Scanner) CountMedia() (int, error) {
	count := 0
	err := s.walk(func(path string, de *godirwalk.Dirent) error {
		if !de.IsDir() && mediaType(de.Name()) != "" {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Run walks the root, upserts every media file into the catalog and
// rebuilds the date bucket groups. Items already in the catalog keep
// their recognition status, classification and subject flag; new items
// start pending.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	var result Result

	existing, err := s.existingByPath(ctx)
	if err != nil {
		return result, err
	}

	et, err := exiftool.NewExiftool()
	if err != nil {
		log.Printf("exiftool unavailable, falling back to file name and mtime: %v", err)
		et = nil
	} else {
		defer et.Close()
	}

	buckets := map[string][]catalog.MediaItem{}

	err = s.walk(func(path string, de *godirwalk.Dirent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		typ := mediaType(de.Name())
		if typ == "" {
			return nil
		}

		info, err := os.Stat(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			return nil
		}

		item := s.buildItem(et, path, de.Name(), typ, info)
		if prev, ok := existing[path]; ok {
			item.Status = prev.Status
			item.Classification = prev.Classification
			item.HasSubject = prev.HasSubject
			result.Updated++
		} else {
			result.Added++
		}
		result.Items++

		if err := s.media.Upsert(ctx, item); err != nil {
			return err
		}

		buckets[item.GroupName] = append(buckets[item.GroupName], item)
		if s.OnFile != nil {
			s.OnFile(path)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk media root: %w", err)
	}

	if err := s.saveGroups(ctx, buckets); err != nil {
		return result, err
	}
	result.Groups = len(buckets)
	return result, nil
}

func (s *Scanner) walk(callback godirwalk.WalkFunc) error {
	return godirwalk.Walk(s.root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != s.root && strings.HasPrefix(de.Name(), ".") {
				return godirwalk.SkipThis
			}
			return callback(path, de)
		},
	})
}

func (s *Scanner) buildItem(et *exiftool.Exiftool, path, name, typ string, info os.FileInfo) catalog.MediaItem {
	takenAt, camera := extractMeta(et, path, name, info.ModTime())
	return catalog.MediaItem{
		Path:           path,
		Name:           name,
		Size:           info.Size(),
		Type:           typ,
		Camera:         camera,
		Location:       catalog.Unknown,
		TakenAt:        takenAt,
		Classification: catalog.NoClassification,
		Status:         catalog.StatusPending,
		GroupName:      dateBucket(takenAt),
	}
}

func (s *Scanner) existingByPath(ctx context.Context) (map[string]catalog.MediaItem, error) {
	items, err := s.media.Query(ctx, catalog.NewQuery())
	if err != nil {
		return nil, fmt.Errorf("load existing catalog: %w", err)
	}
	byPath := make(map[string]catalog.MediaItem, len(items))
	for _, item := range items {
		byPath[item.Path] = item
	}
	return byPath, nil
}

// saveGroups upserts the walked date buckets. Membership is replaced by
// the walk result; an existing group keeps its selection, subject flag
// and thumbnail, and is marked as having new items when the walk added
// to a group already selected as interesting.
func (s *Scanner) saveGroups(ctx context.Context, buckets map[string][]catalog.MediaItem) error {
	for name, items := range buckets {
		sort.Slice(items, func(i, j int) bool {
			if items[i].TakenAt != items[j].TakenAt {
				return items[i].TakenAt < items[j].TakenAt
			}
			return items[i].Path < items[j].Path
		})

		paths := make([]string, len(items))
		for i, item := range items {
			paths[i] = item.Path
		}

		group, err := s.groups.Get(ctx, name)
		switch {
		case err == nil:
			known := make(map[string]bool, len(group.Items))
			for _, p := range group.Items {
				known[p] = true
			}
			for _, p := range paths {
				if !known[p] && group.Selection == catalog.SelectionInteresting {
					group.HasNewItems = true
					break
				}
			}
			group.Items = paths
		case errors.Is(err, catalog.ErrNotFound):
			group = catalog.Group{
				Name:      name,
				Thumbnail: paths[0],
				Items:     paths,
				Selection: catalog.SelectionUnprocessed,
			}
		default:
			return fmt.Errorf("load group %s: %w", name, err)
		}

		if err := s.groups.Upsert(ctx, group); err != nil {
			return fmt.Errorf("save group %s: %w", name, err)
		}
	}
	return nil
}
