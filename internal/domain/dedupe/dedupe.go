// Package dedupe tracks recently requested moment IDs so the same prefetch is
// not queued twice.
package dedupe

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Deduper records seen moment IDs to keep prefetch work at-most-once per window.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID so it can be requested again, e.g. after the
	// queue rejected it or the prefetch failed.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps IDs in insertion order. When full, the oldest entry
// is evicted. Entries older than ttl (when ttl > 0) count as unseen.
// Lookups use Peek so a repeated request never refreshes an entry.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    *simplelru.LRU[string, time.Time]
	maxSize int // 0 or negative = unbounded
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10_000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	size := d.maxSize
	if size <= 0 {
		size = math.MaxInt
	}
	// NewLRU only fails for a non-positive size.
	d.seen, _ = simplelru.NewLRU[string, time.Time](size, nil)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if recorded, ok := d.seen.Peek(id); ok {
		if !d.expired(recorded, now) {
			return true
		}
		d.seen.Remove(id)
	}
	d.seen.Add(id, now)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Remove(id)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.seen.Len())
}

func (d *inMemoryDeduper) expired(recorded, now time.Time) bool {
	return d.ttl > 0 && now.Sub(recorded) >= d.ttl
}
