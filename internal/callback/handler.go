// Package callback declares the caller-supplied hooks a queue manager
// invokes: the handler that builds barrier frames and observes
// reservation-target changes, and the per-request completion result
// shape.
package callback

import "github.com/openflow-go/flowqueue/internal/frame"

// Reserver is the narrow view of the current generation exposed to a
// ConnectionHandler: enough to let upper-layer code reserve a slot for
// its own requests, nothing about internal cursor state.
type Reserver interface {
	// ReserveEntry reserves the next free slot, returning its XID. ok is
	// false if the generation has no free slots left.
	ReserveEntry(isBarrier bool) (xid uint32, ok bool)
}

// ConnectionHandler supplies the two pieces of caller-specific behavior
// the core cannot provide on its own: constructing a wire-ready barrier
// frame, and learning when the reservation target generation changes.
type ConnectionHandler interface {
	// CreateBarrierRequest builds a barrier request frame carrying xid.
	CreateBarrierRequest(xid uint32) frame.Frame

	// OnConnectionQueueChanged is invoked whenever the manager's current
	// generation changes, including to nil during shutdown.
	OnConnectionQueueChanged(current Reserver)
}

// Result is delivered to a request's completion callback exactly once.
type Result struct {
	// Response is the paired response frame, or nil for an implied
	// success (a later barrier closed this entry out) or a failure.
	Response frame.Frame

	// Err is non-nil for a terminal failure; the queue core delivers
	// its disconnect error here when the channel goes inactive.
	// Capacity exhaustion and commit rejection are returned by
	// Reserve/Commit instead. A nil Err with a nil Response means
	// implied success.
	Err error
}

// Ok builds a normal, directly-paired result.
func Ok(resp frame.Frame) Result { return Result{Response: resp} }

// ImpliedSuccess builds the "no direct response, but a later barrier
// closed this out" result.
func ImpliedSuccess() Result { return Result{} }

// Failed builds a terminal-error result.
func Failed(err error) Result { return Result{Err: err} }

// Completion is invoked exactly once per committed entry.
type Completion func(Result)
