package async

import "errors"

var (
	// ErrTimeout is returned by AwaitWithTimeout when the computation does
	// not complete in time.
	ErrTimeout = errors.New("async: operation timed out waiting for future completion")
)
