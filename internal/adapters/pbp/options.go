package pbp

import (
	"net/http"
	"time"

	"github.com/dock108/scrolldown/pkg/logger"
)

// MockOption applies a configuration option to the MockFetcher.
type MockOption func(*MockFetcher)

// WithLatency sets a fixed simulated latency. Zero disables the delay.
func WithLatency(d time.Duration) MockOption {
	return func(m *MockFetcher) {
		if d >= 0 {
			m.minLatency, m.maxLatency = d, d
		}
	}
}

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) MockOption {
	return func(m *MockFetcher) {
		if minLatency >= 0 && maxLatency > minLatency {
			m.minLatency = minLatency
			m.maxLatency = maxLatency
		}
	}
}

// WithSeed changes the generated data set.
func WithSeed(seed int64) MockOption {
	return func(m *MockFetcher) {
		m.seed = seed
	}
}

// WithFailure makes every fetch fail with err, or ErrMockFailure when err is nil.
func WithFailure(err error) MockOption {
	return func(m *MockFetcher) {
		if err == nil {
			err = ErrMockFailure
		}
		m.failWith = err
	}
}

// HTTPOption applies a configuration option to the HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l logger.Logger) HTTPOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}
