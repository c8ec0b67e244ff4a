// Package dedupe tracks which identities have already been logged this session.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen identities to ensure at-most-once logging per session.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id so a reservation whose durable write failed
	// does not claim the identity.
	Unrecord(ctx context.Context, id string)

	// Seen reports whether id has been recorded, without recording it.
	Seen(ctx context.Context, id string) bool

	Size() int64
}

// inMemoryDeduper is an unbounded set. Entries are never evicted: an evicted
// identity would be logged a second time in the same session.
type inMemoryDeduper struct {
	mu           sync.Mutex
	seen         map[string]struct{}
	capacityHint int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.capacityHint)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

func (d *inMemoryDeduper) Seen(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, exists := d.seen[id]
	return exists
}

// Size returns the number of recorded identities.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
