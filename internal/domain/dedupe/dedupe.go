// Package dedupe tracks already-counted activity event IDs.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/careerpulse/pkg/metrics"
)

// DefaultMaxSize bounds the number of remembered IDs.
const DefaultMaxSize = 4096

// Deduper records seen event IDs so each event is counted at most once.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. It returns true for a duplicate.
	SeenAndRecord(ctx context.Context, id string) bool
	// Size returns the number of remembered IDs.
	Size() int
}

// ringDeduper keeps the most recent maxSize IDs. When full, the oldest ID is
// forgotten first. maxSize <= 0 disables eviction.
type ringDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> slot in ring
	ring    []string
	next    int
	maxSize int
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		metrics.RecordDuplicateEvent()
		return true
	}
	if d.maxSize <= 0 {
		d.seen[id] = -1
		return false
	}
	if len(d.ring) < d.maxSize {
		d.seen[id] = len(d.ring)
		d.ring = append(d.ring, id)
		return false
	}
	delete(d.seen, d.ring[d.next])
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *ringDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
