package recognition

import "time"

// Window is a fixed-capacity FIFO of per-item processing durations.
// Once full, pushing a new sample evicts the oldest. It is not safe for
// concurrent use; the engine guards it with its own mutex.
type Window struct {
	samples []time.Duration
	head    int
	size    int
}

// NewWindow creates a window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	return &Window{samples: make([]time.Duration, capacity)}
}

// Push adds a sample, evicting the oldest one when the window is full.
func (w *Window) Push(d time.Duration) {
	w.samples[w.head] = d
	w.head = (w.head + 1) % len(w.samples)
	if w.size < len(w.samples) {
		w.size++
	}
}

// Len returns the number of held samples.
func (w *Window) Len() int {
	return w.size
}

// Average returns the mean of the held samples, zero when empty.
func (w *Window) Average() time.Duration {
	if w.size == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < w.size; i++ {
		total += w.samples[i]
	}
	return total / time.Duration(w.size)
}
