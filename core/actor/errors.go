package actor

import "errors"

var (
	// ErrStopped is returned by Submit and TrySubmit once the dispatch loop
	// has terminated, whether by stop signal, drained closure, or context
	// cancellation.
	ErrStopped = errors.New("actor stopped")

	// ErrClosed is returned by Submit and TrySubmit after Close released the
	// producer side of the actor.
	ErrClosed = errors.New("actor closed for submissions")

	// ErrInboundFull is returned by TrySubmit when the inbound channel is at
	// capacity. Submit waits instead.
	ErrInboundFull = errors.New("inbound channel full")

	// ErrSelfRequest is returned by Request when a handler addresses its own
	// actor: the reply could never arrive while the handler holds the
	// dispatch loop.
	ErrSelfRequest = errors.New("request to self would deadlock")
)
