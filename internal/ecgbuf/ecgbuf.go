// Package ecgbuf implements the bounded ECG sample ring that both the
// motion-artifact canceller and the conditioner/fiducial detector share.
// Unlike the generic ringbuf.Buffer, samples here are addressed by a
// monotonically increasing global index so that fiducial points (which
// reference a global index) can tell whether they have aged out of the
// window and may be pruned (spec §3 invariants).
package ecgbuf

import "sync"

// DefaultCapacity is N from spec §3: ~38s at 130Hz.
const DefaultCapacity = 5000

// Buffer is a fixed-capacity, global-indexed ring of model.EcgSample-shaped
// entries. It is generic over the stored sample type so the same
// implementation backs both the raw-ingress view and any other
// index-addressed signal window the pipeline needs.
type Buffer[T any] struct {
	mu           sync.RWMutex
	data         []T
	capacity     int
	totalWritten int64 // count of all samples ever appended
}

// New creates a buffer of the given capacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
}

// Append adds a sample and returns the global index assigned to it.
func (b *Buffer[T]) Append(s T) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.totalWritten
	b.data[idx%int64(b.capacity)] = s
	b.totalWritten++
	return idx
}

// At returns the sample at the given global index, and whether it is
// still retained in the window (false if it has been pruned or never
// existed).
func (b *Buffer[T]) At(globalIndex int64) (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var zero T
	if globalIndex < 0 || globalIndex >= b.totalWritten {
		return zero, false
	}
	if b.totalWritten-globalIndex > int64(b.capacity) {
		return zero, false // aged out
	}
	return b.data[globalIndex%int64(b.capacity)], true
}

// Retained reports whether a global index still has a live backing
// sample in the window.
func (b *Buffer[T]) Retained(globalIndex int64) bool {
	_, ok := b.At(globalIndex)
	return ok
}

// Window returns up to n of the most recently appended samples, oldest
// first, along with the global index of the first returned sample.
func (b *Buffer[T]) Window(n int) (samples []T, firstIndex int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.totalWritten
	if count == 0 {
		return nil, 0
	}
	available := int64(b.capacity)
	if count < available {
		available = count
	}
	if int64(n) > 0 && int64(n) < available {
		available = int64(n)
	}

	firstIndex = count - available
	out := make([]T, 0, available)
	for i := firstIndex; i < count; i++ {
		out = append(out, b.data[i%int64(b.capacity)])
	}
	return out, firstIndex
}

// Len returns the number of samples currently retained (bounded by
// capacity).
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.totalWritten > int64(b.capacity) {
		return b.capacity
	}
	return int(b.totalWritten)
}

// LatestIndex returns the global index of the most recently appended
// sample, and false if the buffer is empty.
func (b *Buffer[T]) LatestIndex() (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.totalWritten == 0 {
		return 0, false
	}
	return b.totalWritten - 1, true
}

// OldestIndex returns the global index of the oldest retained sample.
func (b *Buffer[T]) OldestIndex() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.totalWritten <= int64(b.capacity) {
		return 0
	}
	return b.totalWritten - int64(b.capacity)
}

// Reset discards all samples, as on session end (spec §3 lifecycle).
func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalWritten = 0
}

// Update mutates the sample at globalIndex in place via fn, if it is
// still retained. Used by the pipeline to record, on an already-appended
// sample, the global index that Append assigned to it.
func (b *Buffer[T]) Update(globalIndex int64, fn func(*T)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if globalIndex < 0 || globalIndex >= b.totalWritten {
		return false
	}
	if b.totalWritten-globalIndex > int64(b.capacity) {
		return false
	}
	fn(&b.data[globalIndex%int64(b.capacity)])
	return true
}
