package loader

import "github.com/dock108/scrolldown/pkg/logger"

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithObserver registers a callback that receives every published state.
// It runs on the goroutine that called Load, outside the loader's lock.
func WithObserver(fn func(State)) Option {
	return func(ld *Loader) {
		ld.observer = fn
	}
}
