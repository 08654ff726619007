// Package recognition runs face detection over the media catalog as a
// resumable background job.
package recognition

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomasmach/photo-triage/internal/catalog"
	"github.com/tomasmach/photo-triage/internal/recognizer"
)

// windowSize caps the number of duration samples kept for the
// time-remaining estimate.
const windowSize = 10

// Recognizer detects faces in raw image bytes.
type Recognizer interface {
	Detect(ctx context.Context, imageData []byte) ([]recognizer.Insight, error)
}

// Engine walks the catalog and runs face detection on every unprocessed
// image. One background worker per engine; items move through
// pending -> done or pending -> failed, and the operator can bulk-flip
// failed items back into the queue with Retry. All collaborators are
// passed in at construction.
type Engine struct {
	media   catalog.MediaStore
	faces   catalog.FaceStore
	vectors catalog.VectorIndex

	// dial creates a fresh recognition client. The worker dials once per
	// run and re-dials after a failed attempt so a poisoned connection
	// cannot fail every following item.
	dial func() Recognizer

	// read loads image bytes from disk, swapped out in tests.
	read func(path string) ([]byte, error)

	mu      sync.Mutex
	state   State
	lastErr error
	window  *Window
	cancel  context.CancelFunc
	done    chan struct{} // non-nil while a worker is active
}

// New creates an engine. The dial function is called whenever the engine
// needs a fresh recognition client.
func New(media catalog.MediaStore, faces catalog.FaceStore, vectors catalog.VectorIndex, dial func() Recognizer) *Engine {
	return &Engine{
		media:   media,
		faces:   faces,
		vectors: vectors,
		dial:    dial,
		read:    os.ReadFile,
		state:   StateIdle,
		window:  NewWindow(windowSize),
	}
}

// Start launches the background worker over pending items. It is a no-op
// when a worker is already active. It returns once the worker has signaled
// that it is running, so the caller can immediately query status; ctx
// bounds only this readiness wait, not the run itself.
func (e *Engine) Start(ctx context.Context) error {
	return e.launch(ctx, false)
}

// Retry moves every failed item back into the queue and then starts the
// worker over pending and retried items. No-op while a worker is active.
func (e *Engine) Retry(ctx context.Context) error {
	return e.launch(ctx, true)
}

// Stop requests cooperative cancellation. The in-flight item always
// completes; the worker halts before pulling the next one, so latency is
// bounded by one recognition round-trip.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Wait blocks until the active worker exits. Returns immediately when no
// worker is running.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) launch(ctx context.Context, retryMode bool) error {
	e.mu.Lock()
	if e.done != nil {
		e.mu.Unlock()
		return nil
	}

	statuses := []catalog.RecognitionStatus{catalog.StatusPending}
	if retryMode {
		if _, err := e.media.UpdateStatusBulk(ctx, catalog.StatusFailed, catalog.StatusRetry); err != nil {
			e.mu.Unlock()
			return fmt.Errorf("move failed items back to queue: %w", err)
		}
		statuses = append(statuses, catalog.StatusRetry)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ready := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.state = StateWorking
	e.lastErr = nil
	e.mu.Unlock()

	go e.run(runCtx, statuses, ready, done)

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) run(ctx context.Context, statuses []catalog.RecognitionStatus, ready, done chan struct{}) {
	defer close(done)
	defer e.flush()
	close(ready)

	rec := e.dial()
	defer func() { closeClient(rec) }()

	for {
		select {
		case <-ctx.Done():
			e.finish(StateIdle, nil)
			return
		default:
		}

		item, err := e.nextEligible(ctx, statuses)
		if err != nil {
			e.finish(StateCrashed, fmt.Errorf("fetch next item: %w", err))
			return
		}
		if item == nil {
			e.finish(StateDone, nil)
			return
		}

		started := time.Now()
		// The in-flight item must complete even after Stop, so item
		// processing runs detached from the cancellation signal.
		if err := e.processItem(context.WithoutCancel(ctx), &rec, *item); err != nil {
			e.finish(StateCrashed, err)
			return
		}
		e.pushSample(time.Since(started))
	}
}

// nextEligible fetches exactly one queued image. Re-querying the catalog
// every iteration picks up items added or re-queued while the worker runs.
func (e *Engine) nextEligible(ctx context.Context, statuses []catalog.RecognitionStatus) (*catalog.MediaItem, error) {
	vals := make([]any, len(statuses))
	for i, s := range statuses {
		vals[i] = s
	}
	q := catalog.NewQuery().
		Eq(catalog.FieldType, catalog.TypePhoto).
		In(catalog.FieldStatus, vals...).
		OrderBy(catalog.FieldPath, false).
		WithLimit(1)

	items, err := e.media.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// processItem runs one recognition attempt cycle for the item. Expected
// failures (unreadable file, recognition attempt failed twice) mark the
// item failed and return nil; only infrastructure errors propagate and
// crash the run.
func (e *Engine) processItem(ctx context.Context, rec *Recognizer, item catalog.MediaItem) error {
	data, err := e.read(item.Path)
	if err != nil {
		log.Printf("read %s: %v", item.Path, err)
		return e.markStatus(ctx, item, catalog.StatusFailed)
	}

	insights, err := e.detect(ctx, rec, data)
	if err != nil {
		log.Printf("recognize %s: %v", item.Path, err)
		return e.markStatus(ctx, item, catalog.StatusFailed)
	}

	for _, ins := range insights {
		face := catalog.Face{
			ID:             uuid.NewString(),
			MediaPath:      item.Path,
			BBox:           ins.BBox,
			SubjectInImage: item.HasSubject,
		}
		// Vector first. If the process dies between the two writes the
		// orphaned vector is unreachable, while a face without a vector
		// would poison similarity search.
		if err := e.vectors.Add(ctx, face.ID, ins.Embedding); err != nil {
			return fmt.Errorf("store embedding for %s: %w", item.Path, err)
		}
		if err := e.faces.Add(ctx, face); err != nil {
			return fmt.Errorf("store face for %s: %w", item.Path, err)
		}
	}

	return e.markStatus(ctx, item, catalog.StatusDone)
}

// detect calls the recognizer, allowing one retry on a fresh client.
func (e *Engine) detect(ctx context.Context, rec *Recognizer, data []byte) ([]recognizer.Insight, error) {
	insights, err := (*rec).Detect(ctx, data)
	if err == nil {
		return insights, nil
	}

	log.Printf("recognition attempt failed, retrying with a fresh client: %v", err)
	closeClient(*rec)
	*rec = e.dial()
	return (*rec).Detect(ctx, data)
}

func (e *Engine) markStatus(ctx context.Context, item catalog.MediaItem, status catalog.RecognitionStatus) error {
	item.Status = status
	if err := e.media.Upsert(ctx, item); err != nil {
		return fmt.Errorf("update status for %s: %w", item.Path, err)
	}
	return nil
}

func (e *Engine) pushSample(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.window.Push(d)
}

func (e *Engine) finish(state State, err error) {
	e.mu.Lock()
	e.state = state
	e.lastErr = err
	e.done = nil
	e.cancel = nil
	e.mu.Unlock()
	if err != nil {
		log.Printf("recognition worker crashed: %v", err)
	}
}

// flush persists the vector index when the backing implementation keeps
// state in memory. Runs on every worker exit, crashes included.
func (e *Engine) flush() {
	type saver interface {
		Save() error
	}
	if s, ok := e.vectors.(saver); ok {
		if err := s.Save(); err != nil {
			log.Printf("flush vector index: %v", err)
		}
	}
}

func closeClient(rec Recognizer) {
	type closer interface {
		Close()
	}
	if c, ok := rec.(closer); ok {
		c.Close()
	}
}
