package queue

import (
	"sync/atomic"

	"github.com/openflow-go/flowqueue/internal/callback"
	"github.com/openflow-go/flowqueue/internal/frame"
)

// entryState is the monotonic forward state of one QueueEntry. No state
// is ever revisited within a generation's lifetime; reuse resets every
// slot back to stateFree.
//
// Five states rather than three because ownership of a slot passes
// through two independent producer/consumer boundaries: reservation is
// multi-producer (any goroutine may claim a free slot), commit is
// order-serialized, and flush is event-loop-only. A slot only becomes
// visible to the flush loop once Committed, and a slot with a delivered
// response is marked Completed rather than freed immediately, because
// pairRequest must still be able to find it for completedCount
// bookkeeping until the contiguous-prefix advance catches up to it.
type entryState int32

const (
	stateFree entryState = iota
	stateReserved
	stateCommitted
	stateFlushed
	stateCompleted
)

// QueueEntry is one slot of an OutboundQueue generation.
type QueueEntry struct {
	xid        uint32
	state      atomic.Int32
	isBarrier  bool
	request    frame.Frame
	completion callback.Completion
}

func (e *QueueEntry) reset(xid uint32) {
	e.xid = xid
	e.state.Store(int32(stateFree))
	e.isBarrier = false
	e.request = nil
	e.completion = nil
}

// XID returns the slot's transaction identifier. Immutable for the life
// of the slot.
func (e *QueueEntry) XID() uint32 { return e.xid }

// IsBarrier reports whether this entry was committed as a barrier.
func (e *QueueEntry) IsBarrier() bool { return e.isBarrier }

func (e *QueueEntry) loadState() entryState {
	return entryState(e.state.Load())
}

// storeState performs a release store: the flush loop's corresponding
// acquire load (via loadState, itself an atomic load) is guaranteed to
// observe every field this package writes before the state transition.
func (e *QueueEntry) storeState(s entryState) {
	e.state.Store(int32(s))
}
