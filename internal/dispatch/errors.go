package dispatch

import "errors"

// Error taxonomy for state-machine operations. Every failure is local to
// the triggering event: the gateway reports it back to the originating
// connection only and dispatch keeps running.
var (
	// ErrUnknownActor marks operations referencing a patient or driver id
	// not present in the session store.
	ErrUnknownActor = errors.New("unknown actor")

	// ErrUnknownRequest marks operations referencing a request id not
	// present in the session store.
	ErrUnknownRequest = errors.New("unknown request")

	// ErrInvalidOperation marks structurally valid ids in the wrong state,
	// e.g. accepting a request that is no longer pending.
	ErrInvalidOperation = errors.New("invalid operation")
)
