package repository

import "time"

// Option applies a configuration option to the SessionStore.
type Option[T any] func(*SessionStore[T])

// WithMaxEntries caps the number of sessions; the least recently used is
// evicted first. Zero or negative means unbounded.
func WithMaxEntries[T any](n int) Option[T] {
	return func(s *SessionStore[T]) {
		s.maxEntries = n
	}
}

// WithIdleTTL evicts sessions not used for d. The sweep runs every interval.
func WithIdleTTL[T any](d, interval time.Duration) Option[T] {
	return func(s *SessionStore[T]) {
		if d > 0 {
			s.idleTTL = d
		}
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithOnEvict registers a callback for evicted sessions. It runs outside the
// store's lock.
func WithOnEvict[T any](fn func(key string, value T)) Option[T] {
	return func(s *SessionStore[T]) {
		s.onEvict = fn
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval[T any](interval time.Duration) Option[T] {
	return func(s *SessionStore[T]) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithClock overrides the time source.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(s *SessionStore[T]) {
		if now != nil {
			s.now = now
		}
	}
}
