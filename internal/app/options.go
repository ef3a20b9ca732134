package service

import (
	"time"

	"github.com/dock108/scrolldown/internal/adapters/pbp"
	"github.com/dock108/scrolldown/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFetcher sets the play-by-play source shared by loaders and prefetch workers.
func WithFetcher(f pbp.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithWorkerCount sets the number of prefetch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the prefetch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the prefetch deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDedupeTTL lets a moment be prefetched again after d.
func WithDedupeTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dedupeTTL = d
		}
	}
}

// WithSessionLimit caps the number of live session loaders.
func WithSessionLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.sessionLimit = limit
		}
	}
}

// WithSessionIdleTTL evicts sessions that have not loaded anything for d.
func WithSessionIdleTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionIdleTTL = d
		}
	}
}

// WithJobTimeout bounds a single prefetch.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
