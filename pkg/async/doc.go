// Package async provides a minimal Future abstraction for running a
// function in its own goroutine and collecting its result later.
//
// The notification engine uses it to fan side-channel work (socket pushes,
// email sends) out of the request path while still being able to bound each
// dispatch with AwaitWithTimeout.
//
// Usage:
//
//	f := async.Async(ctx, userID, loadProfile)
//	profile, err := f.AwaitWithTimeout(5 * time.Second)
//
// A Future completes exactly once. Awaiting it multiple times returns the
// same result; AwaitWithTimeout returns ErrTimeout without cancelling the
// underlying goroutine.
package async
