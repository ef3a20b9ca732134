package pbp

import "errors"

var (
	// ErrUnexpectedStatus is wrapped when the backend answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMockFailure is the default error of a mock configured to fail.
	ErrMockFailure = errors.New("mock pbp unavailable")
)
