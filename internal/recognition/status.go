package recognition

import (
	"context"
	"fmt"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// State describes the engine as a whole, not individual items.
type State string

const (
	// StateIdle means no worker is running and none has finished yet,
	// or the last run was stopped by the operator.
	StateIdle State = "idle"
	// StateWorking means the background worker is processing items.
	StateWorking State = "working"
	// StateDone means the last run drained the queue.
	StateDone State = "done"
	// StateCrashed means the last run aborted on an unexpected error.
	// The engine answers status calls but refuses new work until the
	// operator starts it again.
	StateCrashed State = "crashed"
)

// Status is a point-in-time snapshot of the recognition run. Counts are
// recomputed from the catalog on every call so externally added items and
// reviewer edits show up without restarting the engine.
type Status struct {
	State    State `json:"state"`
	Images   int   `json:"images"`
	Pending  int   `json:"pending"`
	Retrying int   `json:"retrying"`
	Done     int   `json:"done"`
	Failed   int   `json:"failed"`

	// Processed counts items in a terminal state, done plus failed.
	Processed int `json:"processed"`

	// Progress is Processed over Images, 0 for an empty catalog.
	Progress float64 `json:"progress"`

	// AvgSeconds is the mean processing time of the last few items.
	AvgSeconds float64 `json:"avg_seconds_per_image"`

	// RemainingSeconds estimates time to drain the queue, -1 until at
	// least one item has been processed this run.
	RemainingSeconds float64 `json:"remaining_seconds"`

	LastError string `json:"last_error,omitempty"`
}

// Status reports engine state and catalog counts. The catalog is the
// source of truth; nothing here is cached between calls.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	photos := catalog.NewQuery().Eq(catalog.FieldType, catalog.TypePhoto)

	total, err := e.media.Count(ctx, photos)
	if err != nil {
		return Status{}, fmt.Errorf("count images: %w", err)
	}

	byStatus := make(map[catalog.RecognitionStatus]int, 4)
	for _, s := range []catalog.RecognitionStatus{
		catalog.StatusPending,
		catalog.StatusRetry,
		catalog.StatusFailed,
		catalog.StatusDone,
	} {
		n, err := e.media.Count(ctx, photos.Eq(catalog.FieldStatus, s))
		if err != nil {
			return Status{}, fmt.Errorf("count %s images: %w", s, err)
		}
		byStatus[s] = n
	}

	e.mu.Lock()
	state := e.state
	lastErr := e.lastErr
	samples := e.window.Len()
	avg := e.window.Average()
	e.mu.Unlock()

	status := Status{
		State:     state,
		Images:    total,
		Pending:   byStatus[catalog.StatusPending],
		Retrying:  byStatus[catalog.StatusRetry],
		Done:      byStatus[catalog.StatusDone],
		Failed:    byStatus[catalog.StatusFailed],
		Processed: byStatus[catalog.StatusDone] + byStatus[catalog.StatusFailed],
	}
	if total > 0 {
		status.Progress = float64(status.Processed) / float64(total)
	}

	queued := status.Pending + status.Retrying
	status.RemainingSeconds = -1
	if samples > 0 {
		status.AvgSeconds = avg.Seconds()
		status.RemainingSeconds = float64(queued) * status.AvgSeconds
	}
	if lastErr != nil {
		status.LastError = lastErr.Error()
	}
	return status, nil
}
