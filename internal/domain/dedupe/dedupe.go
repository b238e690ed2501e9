// Package dedupe tracks skillset ids that already occupy a slot, so a
// skillset is submitted at most once across all cohorts.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records claimed ids.
type Deduper interface {
	// SeenAndRecord atomically checks if id was claimed and claims it if not.
	// Returns true if id was already claimed, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord releases a claim. Used when the submission that recorded the
	// id failed to persist.
	Unrecord(ctx context.Context, id string)

	// Seed records ids loaded from durable state without reporting duplicates.
	Seed(ctx context.Context, ids ...string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a mutex-guarded set. It never
// evicts: forgetting a claim would let a skillset occupy two slots.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	size atomic.Int64
}

// NewInMemoryDeduper creates an empty in-memory deduper.
func NewInMemoryDeduper() Deduper {
	return &inMemoryDeduper{seen: make(map[string]struct{})}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Seed(ctx context.Context, ids ...string) {
	for _, id := range ids {
		d.SeenAndRecord(ctx, id)
	}
}

// Size returns the number of claimed ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
