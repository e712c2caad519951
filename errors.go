package pixcache

import "errors"

var (
	// ErrCanceled is the terminal state of a load whose waiter was
	// cancelled, whose flight was cancelled, or whose result arrived
	// after a scope switch made it stale. It is not a failure: callers
	// must be able to tell "cancelled" apart from "failed".
	ErrCanceled = errors.New("pixcache: load canceled")

	// ErrClosed is returned by loads issued after Close.
	ErrClosed = errors.New("pixcache: pipeline closed")
)
