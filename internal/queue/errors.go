package queue

import "errors"

// Sentinel causes raised by the queue core. The public flowqueue package
// wraps these in its own *Error type but re-exports the same sentinel
// values so callers can compare with errors.Is regardless of which
// layer raised the error.
var (
	// ErrCapacityExhausted is returned by Reserve when the current
	// generation has no free slots left.
	ErrCapacityExhausted = errors.New("flowqueue: queue capacity exhausted")

	// ErrDisconnected is returned by Reserve/Commit once the channel has
	// gone inactive, and is the cause passed to failAll on disconnect.
	ErrDisconnected = errors.New("flowqueue: channel disconnected")

	// ErrRejected is returned by Commit when xid does not match the
	// oldest uncommitted slot of the generation that owns it.
	ErrRejected = errors.New("flowqueue: commit rejected")

	// ErrUnknownXID is returned by Commit when xid falls outside every
	// active generation's range.
	ErrUnknownXID = errors.New("flowqueue: unknown xid")
)
