// Package worker runs prefetch jobs: each job fetches a moment's play-by-play
// through the configured fetcher so later loads hit a warm cache.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dock108/scrolldown/internal/adapters/mq/queue"
	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/pkg/logger"
	"github.com/dock108/scrolldown/pkg/metrics"
)

const (
	defaultJobTimeout   = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Fetcher is the operation a prefetch job performs.
type Fetcher interface {
	FetchMomentPbp(ctx context.Context, id model.ID) ([]model.Event, error)
}

// Source defines how workers receive jobs.
type Source interface {
	Jobs() <-chan queue.Job
}

// CompletionFunc is called after every job with its outcome.
type CompletionFunc func(ctx context.Context, job queue.Job, err error)

// InMemoryWorker pulls jobs off a Source until it is closed or ctx ends.
type InMemoryWorker struct {
	source     Source
	fetcher    Fetcher
	name       string
	jobTimeout time.Duration
	onDone     CompletionFunc
	logger     logger.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(source Source, fetcher Fetcher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:     source,
		fetcher:    fetcher,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run processes jobs until the source is closed or ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	jobs := w.source.Jobs()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Warn(ctx, "prefetch failed", logger.Error(err))
			}
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	metrics.RecordQueueDequeue()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	events, err := w.fetcher.FetchMomentPbp(jobCtx, job.MomentID)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))

	if w.onDone != nil {
		w.onDone(ctx, job, err)
	}

	if err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "prefetch_failed")
		return fmt.Errorf("prefetch moment %s: %w", job.MomentID, err)
	}

	w.processed.Add(1)
	metrics.RecordWorkerProcessed()
	w.logger.Debug(ctx, "prefetched moment",
		logger.String("moment_id", job.MomentID.String()),
		logger.Int("events", len(events)),
		logger.Duration("queued_for", start.Sub(job.EnqueuedAt)),
	)
	return nil
}

// Pool manages multiple workers reading from one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   queue.Queue
	logger  logger.Logger

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

// NewPool creates a worker pool. Options are applied to every worker.
func NewPool(workerCount int, q queue.Queue, fetcher Fetcher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, fetcher, workerOpts...)
	}
	probe := &InMemoryWorker{logger: p.logger}
	for _, opt := range opts {
		opt(probe)
	}
	p.logger = probe.logger

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Shutdown closes the queue and waits for workers to drain it. If ctx ends
// first, in-flight jobs are canceled.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !p.started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-shutdownCtx.Done():
		p.cancel()
		<-done
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
}

// Stats reports processed and failed job counts across the pool.
func (p *Pool) Stats() map[string]interface{} {
	var processed, failed int64
	for _, w := range p.workers {
		processed += w.processed.Load()
		failed += w.failed.Load()
	}
	return map[string]interface{}{
		"workers":   len(p.workers),
		"processed": processed,
		"failed":    failed,
	}
}
