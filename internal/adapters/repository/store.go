// Package repository keeps per-session state in memory: a bounded,
// least-recently-used map from session id to a value built on demand,
// backed by golang-lru.
package repository

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/dock108/scrolldown/pkg/metrics"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	defaultMaxEntries     = 10_000
	defaultSweepInterval  = time.Minute
	defaultMetricsUpdates = 5 * time.Second
)

// Store maps session ids to values of type T.
type Store[T any] interface {
	// GetOrCreate returns the value for key, building it with the store's
	// factory when absent. created reports whether it was built.
	GetOrCreate(ctx context.Context, key string) (value T, created bool)

	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) (T, error)

	Delete(ctx context.Context, key string) bool
	Len() int
}

type item[T any] struct {
	value    T
	lastUsed time.Time
}

type eviction[T any] struct {
	key   string
	value T
}

// SessionStore is an in-memory Store with LRU eviction at capacity and
// optional idle expiry swept in the background.
type SessionStore[T any] struct {
	factory func(key string) T
	onEvict func(key string, value T)

	maxEntries            int
	idleTTL               time.Duration
	sweepInterval         time.Duration
	metricsUpdateInterval time.Duration
	now                   func() time.Time

	// mu guards lru and pending. lru calls back into pending on every
	// removal; callbacks are delivered after mu is released.
	mu      sync.Mutex
	lru     *simplelru.LRU[string, *item[T]]
	pending []eviction[T]

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewSessionStore builds a store that creates missing values with factory.
// Background goroutines stop on Close or when ctx ends.
func NewSessionStore[T any](ctx context.Context, factory func(key string) T, opts ...Option[T]) *SessionStore[T] {
	s := &SessionStore[T]{
		factory:               factory,
		maxEntries:            defaultMaxEntries,
		sweepInterval:         defaultSweepInterval,
		metricsUpdateInterval: defaultMetricsUpdates,
		now:                   time.Now,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	size := s.maxEntries
	if size <= 0 {
		size = math.MaxInt
	}
	// NewLRU only fails for a non-positive size.
	s.lru, _ = simplelru.NewLRU[string, *item[T]](size, func(key string, it *item[T]) {
		s.pending = append(s.pending, eviction[T]{key: key, value: it.value})
	})

	if s.idleTTL > 0 {
		s.runEvery(ctx, s.sweepInterval, s.sweepIdle)
	}
	s.runEvery(ctx, s.metricsUpdateInterval, func() { metrics.UpdateActiveSessions(s.Len()) })
	return s
}

// GetOrCreate implements Store.
func (s *SessionStore[T]) GetOrCreate(_ context.Context, key string) (T, bool) {
	s.mu.Lock()
	if it, ok := s.lru.Get(key); ok {
		it.lastUsed = s.now()
		s.mu.Unlock()
		return it.value, false
	}

	it := &item[T]{value: s.factory(key), lastUsed: s.now()}
	s.lru.Add(key, it)
	evicted := s.takePendingLocked()
	s.mu.Unlock()

	s.evicted(evicted)
	return it.value, true
}

// Get implements Store.
func (s *SessionStore[T]) Get(_ context.Context, key string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.lru.Get(key)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	it.lastUsed = s.now()
	return it.value, nil
}

// Delete implements Store. Deleted sessions are not reported as evicted.
func (s *SessionStore[T]) Delete(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.lru.Remove(key)
	s.pending = s.pending[:0]
	return ok
}

// Len implements Store.
func (s *SessionStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Close stops background goroutines.
func (s *SessionStore[T]) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *SessionStore[T]) sweepIdle() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	for {
		_, it, ok := s.lru.GetOldest()
		if !ok || it.lastUsed.After(cutoff) {
			break
		}
		s.lru.RemoveOldest()
	}
	evicted := s.takePendingLocked()
	s.mu.Unlock()

	s.evicted(evicted)
}

// takePendingLocked must be called with s.mu held.
func (s *SessionStore[T]) takePendingLocked() []eviction[T] {
	if len(s.pending) == 0 {
		return nil
	}
	out := s.pending
	s.pending = nil
	return out
}

func (s *SessionStore[T]) evicted(items []eviction[T]) {
	for _, e := range items {
		metrics.RecordSessionEviction()
		if s.onEvict != nil {
			s.onEvict(e.key, e.value)
		}
	}
}

func (s *SessionStore[T]) runEvery(ctx context.Context, interval time.Duration, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}
