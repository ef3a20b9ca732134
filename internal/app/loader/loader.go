// Package loader drives the per-consumer moment PBP load: it fetches a
// moment's play-by-play once per distinct moment, orders it relative to the
// moment and publishes the events, loading flag and error message.
package loader

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/domain/timeline"
	"github.com/dock108/scrolldown/pkg/logger"
	"github.com/dock108/scrolldown/pkg/metrics"
)

// Fetcher returns the raw play-by-play for a moment.
type Fetcher interface {
	FetchMomentPbp(ctx context.Context, id model.ID) ([]model.Event, error)
}

// State is a snapshot of what the loader publishes.
type State struct {
	// MomentID is the last successfully loaded moment; zero before any success.
	MomentID     model.ID
	Events       []model.Event
	IsLoading    bool
	ErrorMessage string
}

// errLoadAborted is published when a fetch ends without returning.
const errLoadAborted = "moment pbp load aborted"

type call struct {
	id   string
	gen  uint64
	done chan struct{}
}

// Loader is safe for concurrent use. The most recently started load wins;
// completions of older loads are discarded.
type Loader struct {
	fetcher  Fetcher
	logger   logger.Logger
	observer func(State)

	mu         sync.Mutex
	state      State
	loaded     bool
	generation uint64
	inflight   *call
}

// New creates a Loader that fetches through f.
func New(f Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: f,
		logger:  logger.Nop(),
		state:   State{Events: []model.Event{}},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns a copy of the published state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Load makes m the loader's moment. It is a no-op when m is already the
// loaded moment and joins an in-flight load of the same moment. A failed
// load keeps the previous events and can be retried by calling Load again.
func (l *Loader) Load(ctx context.Context, m model.Moment) State {
	id := m.ID.String()

	l.mu.Lock()
	if l.loaded && l.state.MomentID.String() == id {
		if l.inflight != nil {
			// Re-selecting the loaded moment supersedes the pending one.
			l.generation++
			l.inflight = nil
			l.state.IsLoading = false
			st := l.snapshot()
			l.mu.Unlock()
			metrics.RecordLoad(metrics.LoadResultSkipped)
			l.publish(st)
			return st
		}
		st := l.snapshot()
		l.mu.Unlock()
		metrics.RecordLoad(metrics.LoadResultSkipped)
		return st
	}

	if c := l.inflight; c != nil && c.id == id {
		l.mu.Unlock()
		select {
		case <-c.done:
		case <-ctx.Done():
		}
		return l.State()
	}

	l.generation++
	c := &call{id: id, gen: l.generation, done: make(chan struct{})}
	l.inflight = c
	l.state.IsLoading = true
	l.state.ErrorMessage = ""
	st := l.snapshot()
	l.mu.Unlock()
	l.publish(st)

	settled := false
	defer func() {
		// A panicking fetcher must not leave the call registered or the
		// loading flag stuck.
		if !settled {
			l.mu.Lock()
			if l.generation == c.gen {
				l.inflight = nil
				l.state.IsLoading = false
				l.state.ErrorMessage = errLoadAborted
			}
			l.mu.Unlock()
		}
		close(c.done)
	}()

	start := time.Now()
	events, err := l.fetcher.FetchMomentPbp(ctx, m.ID)
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))

	var ordered []model.Event
	var stats timeline.Stats
	if err == nil {
		ordered = timeline.Ordered(m, events)
		stats = timeline.Summarize(m, events)
	}

	l.mu.Lock()
	settled = true
	if l.generation != c.gen {
		st = l.snapshot()
		l.mu.Unlock()
		metrics.RecordLoad(metrics.LoadResultSuperseded)
		l.logger.Debug(ctx, "discarded superseded load", logger.String("moment_id", id))
		return st
	}
	l.inflight = nil
	l.state.IsLoading = false
	if err != nil {
		l.state.ErrorMessage = err.Error()
	} else {
		l.state.Events = ordered
		l.state.MomentID = m.ID
		l.loaded = true
	}
	st = l.snapshot()
	l.mu.Unlock()

	if err != nil {
		metrics.RecordLoad(metrics.LoadResultFailure)
		metrics.RecordErrorByComponent("loader", "fetch_failed")
		l.logger.Warn(ctx, "moment pbp load failed", logger.String("moment_id", id), logger.Error(err))
	} else {
		metrics.RecordLoad(metrics.LoadResultSuccess)
		metrics.RecordOrderedEvents(stats.Kept, stats.FilteredOut, stats.Unresolved)
		l.logger.Debug(ctx, "moment pbp loaded",
			logger.String("moment_id", id),
			logger.Int("events", stats.Kept),
			logger.Int("filtered_out", stats.FilteredOut),
			logger.Duration("took", time.Since(start)),
		)
	}
	l.publish(st)
	return st
}

// snapshot must be called with l.mu held.
func (l *Loader) snapshot() State {
	st := l.state
	st.Events = slices.Clone(l.state.Events)
	return st
}

func (l *Loader) publish(st State) {
	if l.observer != nil {
		l.observer(st)
	}
}
