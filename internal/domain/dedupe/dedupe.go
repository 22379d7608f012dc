// Package dedupe accepts a key at most once, with bounded memory.
//
// The presenter keys playback reports by interstitial id so that the first
// browser to report ended or error releases the sequencer and every later
// report for the same interstitial is counted as a duplicate.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 1024

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not. It is atomic with respect to concurrent callers.
	SeenAndRecord(ctx context.Context, key string) bool

	// Forget removes key so that it may be accepted again.
	Forget(ctx context.Context, key string)

	// Size returns the number of keys held.
	Size() int
}

// ringDeduper evicts the oldest key once maxSize keys are held.
// maxSize <= 0 disables eviction.
type ringDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> slot in ring, -1 when unbounded
	ring    []string
	next    int
	maxSize int
}

// New creates an in-memory deduper.
func New(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[key] = -1
		return false
	}

	if len(d.ring) < d.maxSize {
		d.seen[key] = len(d.ring)
		d.ring = append(d.ring, key)
		return false
	}

	// ring is full: overwrite the oldest slot
	slot := d.next
	if s, ok := d.seen[d.ring[slot]]; ok && s == slot {
		delete(d.seen, d.ring[slot])
	}
	d.ring[slot] = key
	d.seen[key] = slot
	d.next = (slot + 1) % d.maxSize
	return false
}

func (d *ringDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// the ring slot is left in place and skipped on eviction
	delete(d.seen, key)
}

func (d *ringDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
