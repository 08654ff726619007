// Package similarity flags media groups that contain the tracked subject
// by comparing face embeddings against the set of confirmed faces.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// DefaultThreshold is the cosine distance below which two faces are
// considered the same person. Scores from the index are distances, lower
// means more similar; the web layer converts to a similarity percentage
// for display only.
const DefaultThreshold = 0.7

// neighbors is how many nearest faces are fetched per query. Large enough
// that a confirmed face is not crowded out of the result set by
// near-duplicates of the query face.
const neighbors = 100

// ErrAlreadyRunning is returned when a calculation is requested while a
// previous one is still in flight.
var ErrAlreadyRunning = errors.New("similarity calculation already running")

// Progress is a snapshot of the current or last calculation.
type Progress struct {
	Running       bool `json:"running"`
	GroupsTotal   int  `json:"groups_total"`
	GroupsChecked int  `json:"groups_checked"`
	GroupsFlagged int  `json:"groups_flagged"`
}

// Engine scans unflagged groups for the subject. Read-only against the
// vector index; the only writes are group flag updates.
type Engine struct {
	faces   catalog.FaceStore
	groups  catalog.GroupStore
	vectors catalog.VectorIndex

	// OnProgress, when set, is called after every checked group, for
	// CLI progress reporting. Not called concurrently.
	OnProgress func(checked, total int)

	mu       sync.Mutex
	running  bool
	progress Progress
}

// New creates a similarity engine over the given stores.
func New(faces catalog.FaceStore, groups catalog.GroupStore, vectors catalog.VectorIndex) *Engine {
	return &Engine{
		faces:   faces,
		groups:  groups,
		vectors: vectors,
	}
}

// FlagGroupsWithSubject walks every group not yet marked as containing the
// subject and flags it when any of its faces lies within threshold of a
// confirmed face. The first match decides a group; remaining faces are not
// evaluated. Re-running never unsets a flag. Returns the number of groups
// flagged by this run. Only one calculation may run at a time.
func (e *Engine) FlagGroupsWithSubject(ctx context.Context, threshold float64) (int, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return 0, ErrAlreadyRunning
	}
	e.running = true
	e.progress = Progress{Running: true}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.progress.Running = false
		e.mu.Unlock()
	}()

	confirmed, err := e.confirmedSet(ctx)
	if err != nil {
		return 0, err
	}
	if len(confirmed) == 0 {
		return 0, nil
	}

	groups, err := e.groups.Query(ctx, catalog.NewQuery().Eq(catalog.FieldHasSubject, false))
	if err != nil {
		return 0, fmt.Errorf("list unflagged groups: %w", err)
	}

	e.mu.Lock()
	e.progress.GroupsTotal = len(groups)
	e.mu.Unlock()

	flagged := 0
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return flagged, err
		}

		found, err := e.groupHasSubject(ctx, group, confirmed, threshold)
		if err != nil {
			return flagged, err
		}
		if found {
			group.HasSubject = true
			if err := e.groups.Upsert(ctx, group); err != nil {
				return flagged, fmt.Errorf("flag group %s: %w", group.Name, err)
			}
			flagged++
		}

		e.mu.Lock()
		e.progress.GroupsChecked++
		e.progress.GroupsFlagged = flagged
		checked := e.progress.GroupsChecked
		e.mu.Unlock()

		if e.OnProgress != nil {
			e.OnProgress(checked, len(groups))
		}
	}
	return flagged, nil
}

// Status reports the progress of the current or last calculation.
func (e *Engine) Status() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// confirmedSet collects the IDs of faces the reviewer confirmed as the
// subject. Only the IDs matter; neighbor lookups are intersected with
// this set.
func (e *Engine) confirmedSet(ctx context.Context) (map[string]struct{}, error) {
	faces, err := e.faces.Query(ctx, catalog.NewQuery().Eq(catalog.FieldSubjectInFace, true))
	if err != nil {
		return nil, fmt.Errorf("list confirmed faces: %w", err)
	}

	set := make(map[string]struct{}, len(faces))
	for _, f := range faces {
		set[f.ID] = struct{}{}
	}
	return set, nil
}

func (e *Engine) groupHasSubject(ctx context.Context, group catalog.Group, confirmed map[string]struct{}, threshold float64) (bool, error) {
	if len(group.Items) == 0 {
		return false, nil
	}

	paths := make([]any, len(group.Items))
	for i, p := range group.Items {
		paths[i] = p
	}
	faces, err := e.faces.Query(ctx, catalog.NewQuery().In(catalog.FieldMediaPath, paths...))
	if err != nil {
		return false, fmt.Errorf("list faces for group %s: %w", group.Name, err)
	}

	for _, face := range faces {
		vec, err := e.vectors.Get(ctx, face.ID)
		if err != nil {
			return false, fmt.Errorf("load embedding for face %s: %w", face.ID, err)
		}
		if vec == nil {
			// Face record exists but its vector was never written,
			// e.g. the recognition run died between the two stores.
			continue
		}

		matches, err := e.vectors.Search(ctx, vec, neighbors)
		if err != nil {
			return false, fmt.Errorf("search neighbors for face %s: %w", face.ID, err)
		}
		for _, m := range matches {
			if m.Distance >= threshold {
				// Matches are sorted ascending, nothing closer follows.
				break
			}
			if _, ok := confirmed[m.FaceID]; ok {
				return true, nil
			}
		}
	}
	return false, nil
}
