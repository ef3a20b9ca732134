package queue

import "errors"

// Sentinel errors returned by Enqueue.
var (
	ErrFull   = errors.New("prefetch queue full")
	ErrClosed = errors.New("prefetch queue closed")
)
