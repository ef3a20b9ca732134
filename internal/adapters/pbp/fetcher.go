// Package pbp provides the play-by-play sources behind the moment loader: a
// deterministic mock that simulates backend latency and an HTTP client for
// the live backend.
package pbp

import (
	"context"

	"github.com/dock108/scrolldown/internal/domain/model"
)

// Fetcher returns the raw play-by-play for a moment.
type Fetcher interface {
	FetchMomentPbp(ctx context.Context, id model.ID) ([]model.Event, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id model.ID) ([]model.Event, error)

// FetchMomentPbp calls f.
func (f FetcherFunc) FetchMomentPbp(ctx context.Context, id model.ID) ([]model.Event, error) {
	return f(ctx, id)
}
