// Package service wires the moment PBP loaders, the prefetch pipeline and the
// play-by-play source into the operations the HTTP API and CLI call.
package service

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/dock108/scrolldown/internal/adapters/mq/queue"
	"github.com/dock108/scrolldown/internal/adapters/mq/worker"
	"github.com/dock108/scrolldown/internal/adapters/pbp"
	"github.com/dock108/scrolldown/internal/adapters/repository"
	"github.com/dock108/scrolldown/internal/app/loader"
	"github.com/dock108/scrolldown/internal/domain/dedupe"
	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/domain/timeline"
	"github.com/dock108/scrolldown/pkg/logger"
	"github.com/dock108/scrolldown/pkg/metrics"
)

// Service owns one loader per session plus the shared prefetch pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	fetcher    pbp.Fetcher
	sessions   *repository.SessionStore[*loader.Loader]
	deduper    dedupe.Deduper
	queue      *queue.InMemoryQueue
	workerPool *worker.Pool

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	dedupeTTL      time.Duration
	sessionLimit   int
	sessionIdleTTL time.Duration
	jobTimeout     time.Duration

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Without WithFetcher it serves mock data.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      1_024,
		dedupeSize:     10_000,
		sessionLimit:   10_000,
		sessionIdleTTL: 30 * time.Minute,
		jobTimeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = pbp.NewMockFetcher()
	}
	return s
}

// Start builds the session store and starts the prefetch workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting moment pbp service...")

	// Components outlive the caller's ctx; Stop cancels them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	loaderLog := s.logger.Named("loader")
	s.sessions = repository.NewSessionStore(runCtx,
		func(session string) *loader.Loader {
			return loader.New(s.fetcher, loader.WithLogger(loaderLog.With(logger.String("session", session))))
		},
		repository.WithMaxEntries[*loader.Loader](s.sessionLimit),
		repository.WithIdleTTL[*loader.Loader](s.sessionIdleTTL, time.Minute),
	)

	dedupeOpts := []dedupe.Option{dedupe.WithMaxSize(s.dedupeSize)}
	if s.dedupeTTL > 0 {
		dedupeOpts = append(dedupeOpts, dedupe.WithTTL(s.dedupeTTL))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupeOpts...)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.queue, s.fetcher,
		worker.WithLogger(s.logger.Named("prefetch")),
		worker.WithJobTimeout(s.jobTimeout),
		worker.WithCompletion(prefetchDone(s.deduper)),
	)
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "moment pbp service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("sessionLimit", s.sessionLimit),
	)
	return nil
}

// Stop drains the prefetch queue and releases resources.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping moment pbp service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "prefetch workers did not drain", logger.Error(err))
	}
	_ = s.sessions.Close()
	if closer, ok := s.fetcher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "error closing fetcher", logger.Error(err))
		}
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "moment pbp service stopped")
}

// LoadMoment runs the session's loader for m and returns its published state.
func (s *Service) LoadMoment(ctx context.Context, session string, m model.Moment) (loader.State, error) {
	s.mu.RLock()
	started, sessions := s.started, s.sessions
	s.mu.RUnlock()
	if !started {
		return loader.State{}, ErrNotStarted
	}

	l, created := sessions.GetOrCreate(ctx, session)
	if created {
		s.logger.Debug(ctx, "created session", logger.String("session", session))
	}
	return l.Load(ctx, m), nil
}

// SessionState returns the last published state of a session's loader.
func (s *Service) SessionState(ctx context.Context, session string) (loader.State, error) {
	s.mu.RLock()
	started, sessions := s.started, s.sessions
	s.mu.RUnlock()
	if !started {
		return loader.State{}, ErrNotStarted
	}
	l, err := sessions.Get(ctx, session)
	if err != nil {
		return loader.State{}, fmt.Errorf("session %q: %w", session, err)
	}
	return l.State(), nil
}

// OrderEvents orders events relative to m without touching any session.
func (s *Service) OrderEvents(_ context.Context, m model.Moment, events []model.Event) ([]model.Event, timeline.Stats) {
	stats := timeline.Summarize(m, events)
	metrics.RecordOrderedEvents(stats.Kept, stats.FilteredOut, stats.Unresolved)
	return timeline.Ordered(m, events), stats
}

// SeenAndRecord atomically checks if a moment was already queued for
// prefetch and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordPrefetchDuplicate()
	}
	return seen
}

// Unrecord forgets a moment so it can be prefetched again.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		d.Unrecord(ctx, id)
	}
}

// EnqueuePrefetch queues a background fetch for a moment.
func (s *Service) EnqueuePrefetch(ctx context.Context, id model.ID) error {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if err := q.Enqueue(ctx, queue.Job{MomentID: id}); err != nil {
		return fmt.Errorf("prefetch %s: %w", id, err)
	}
	s.logger.Debug(ctx, "queued prefetch", logger.String("moment_id", id.String()))
	return nil
}

// prefetchDone lets a failed prefetch be requested again. It must not take
// s.mu: Stop holds it while workers drain.
func prefetchDone(d dedupe.Deduper) worker.CompletionFunc {
	return func(ctx context.Context, job queue.Job, err error) {
		if err != nil {
			d.Unrecord(ctx, job.MomentID.String())
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"sessionLimit": s.sessionLimit,
	}

	if s.started {
		sessions := s.sessions.Len()
		stats["queueLength"] = s.queue.Len()
		stats["sessions"] = sessions
		stats["prefetchSeen"] = s.deduper.Size()
		stats["prefetch"] = s.workerPool.Stats()

		metrics.UpdateActiveSessions(sessions)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	if c, ok := s.fetcher.(interface{ Stats() map[string]interface{} }); ok {
		stats["cache"] = c.Stats()
	}
	return stats
}
