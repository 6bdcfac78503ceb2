// Package dedupe defines the interface for submission idempotency tracking.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen analysis ids to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id from the seen list, allowing it to be retried.
	// This should only be used when a submission was marked as seen but
	// failed to be processed (e.g., queue backpressure).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

const defaultMaxSize = 50000

// inMemoryDeduper implements Deduper with a bounded ring of recorded ids.
// When the ring wraps, the oldest recorded id is forgotten; for unbounded
// mode (maxSize <= 0) ids are kept forever.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	cursor  int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 {
		if evicted := d.ring[d.cursor]; evicted != "" {
			// The slot may be stale if the id was unrecorded in the meantime.
			if _, ok := d.seen[evicted]; ok {
				delete(d.seen, evicted)
				d.size.Add(-1)
			}
		}
		d.ring[d.cursor] = id
		d.cursor = (d.cursor + 1) % d.maxSize
	}

	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord removes an id from the seen list. The ring slot is left in place;
// a stale slot only causes a harmless no-op delete when it is overwritten.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
}

// Size returns the number of ids currently recorded.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
