package queue

import (
	"sync"
	"sync/atomic"

	"github.com/openflow-go/flowqueue/internal/callback"
	"github.com/openflow-go/flowqueue/internal/frame"
)

// OutboundQueue is one generation: a fixed-capacity, append-only array of
// slots sharing a contiguous XID range. Reservation and commit are safe
// to call from any producer goroutine; everything else (flushEntry,
// pairRequest, completeAll, failAll, reuse) is confined to the event
// loop that owns the parent QueueManager.
//
// Reservation must support true multi-producer concurrency, so
// reserveIndex is a single atomic bump rather than a mutex-guarded
// cursor: callers never block each other to claim a slot, they only
// race on a CAS. Commit, by contrast, must become visible to the flush
// loop in strict reservation order regardless of which goroutine
// commits first, which is what commitMu plus the commitIndex order
// check enforces.
type OutboundQueue struct {
	baseXid  uint32
	capacity uint32
	slots    []QueueEntry

	reserveIndex atomic.Uint32
	commitIndex  atomic.Uint32
	commitMu     sync.Mutex // serializes commitEntry's order check + advance

	// flushIndex and completedCount are event-loop-confined; no
	// producer thread ever reads or writes them.
	flushIndex     uint32
	completedCount uint32
}

// newOutboundQueue allocates a fresh generation with every slot Free.
func newOutboundQueue(baseXid, capacity uint32) *OutboundQueue {
	q := &OutboundQueue{
		baseXid:  baseXid,
		capacity: capacity,
		slots:    make([]QueueEntry, capacity),
	}
	for i := range q.slots {
		q.slots[i].reset(baseXid + uint32(i))
	}
	return q
}

// reuse resets every cursor and slot without reallocating the backing
// array. Precondition: isFinished holds.
func (q *OutboundQueue) reuse(baseXid uint32) {
	q.baseXid = baseXid
	q.reserveIndex.Store(0)
	q.commitIndex.Store(0)
	q.flushIndex = 0
	q.completedCount = 0
	for i := range q.slots {
		q.slots[i].reset(baseXid + uint32(i))
	}
}

// BaseXID returns the first XID this generation owns.
func (q *OutboundQueue) BaseXID() uint32 { return q.baseXid }

// Capacity returns the number of slots in this generation.
func (q *OutboundQueue) Capacity() uint32 { return q.capacity }

// ReserveEntry implements callback.Reserver: it is the only OutboundQueue
// method a ConnectionHandler is handed directly.
func (q *OutboundQueue) ReserveEntry(isBarrier bool) (uint32, bool) {
	return q.reserveEntry(isBarrier)
}

func (q *OutboundQueue) reserveEntry(isBarrier bool) (uint32, bool) {
	for {
		cur := q.reserveIndex.Load()
		if cur >= q.capacity {
			return 0, false
		}
		if q.reserveIndex.CompareAndSwap(cur, cur+1) {
			e := &q.slots[cur]
			e.isBarrier = isBarrier
			e.storeState(stateReserved)
			return e.xid, true
		}
	}
}

// commitEntry writes the request body and completion callback for xid
// and makes the slot visible to the flush loop. Commits must proceed in
// reservation order: xid must be the oldest not-yet-committed slot.
func (q *OutboundQueue) commitEntry(xid uint32, req frame.Frame, completion callback.Completion) bool {
	idx := xid - q.baseXid
	if idx >= q.capacity {
		return false
	}

	q.commitMu.Lock()
	defer q.commitMu.Unlock()

	if idx != q.commitIndex.Load() {
		return false
	}
	e := &q.slots[idx]
	if e.loadState() != stateReserved {
		return false
	}

	e.request = req
	e.completion = completion
	e.storeState(stateCommitted)
	q.commitIndex.Store(idx + 1)
	return true
}

// flushEntry returns the next committed request, transitioning its slot
// to Flushed, or false if the queue is empty (flushIndex == commitIndex).
// Event-loop only.
func (q *OutboundQueue) flushEntry() (*QueueEntry, bool) {
	if q.flushIndex == q.commitIndex.Load() {
		return nil, false
	}
	e := &q.slots[q.flushIndex]
	// Acquire load: pairs with commitEntry's release store above,
	// guaranteeing e.request/e.completion are visible here.
	if e.loadState() != stateCommitted {
		return nil, false
	}
	e.storeState(stateFlushed)
	q.flushIndex++
	return e, true
}

// pairRequest locates the oldest Flushed slot whose XID matches resp,
// invokes its completion with the response, and returns it. Event-loop
// only.
func (q *OutboundQueue) pairRequest(resp frame.Frame) (*QueueEntry, bool) {
	xid := resp.XID()
	for i := q.completedCount; i < q.flushIndex; i++ {
		e := &q.slots[i]
		if e.loadState() != stateFlushed || e.xid != xid {
			continue
		}
		if e.completion != nil {
			e.completion(callback.Ok(resp))
		}
		e.storeState(stateCompleted)
		q.advanceCompletedPrefix()
		return e, true
	}
	return nil, false
}

func (q *OutboundQueue) advanceCompletedPrefix() {
	for q.completedCount < uint32(len(q.slots)) && q.slots[q.completedCount].loadState() == stateCompleted {
		q.completedCount++
	}
}

// completeAll marks every not-yet-Completed, Flushed slot in
// [completedCount, reserveIndex) Completed, invoking each completion with
// an implied-success result in XID order, then advances completedCount
// to reserveIndex. Used when a later barrier's ack proves this
// generation has nothing left outstanding. Event-loop only.
func (q *OutboundQueue) completeAll() {
	upper := q.reserveIndex.Load()
	for i := q.completedCount; i < upper; i++ {
		e := &q.slots[i]
		if e.loadState() == stateFlushed {
			if e.completion != nil {
				e.completion(callback.ImpliedSuccess())
			}
			e.storeState(stateCompleted)
		}
	}
	q.completedCount = upper
}

// failAll invokes every not-yet-Completed slot's completion in
// [completedCount, reserveIndex) with cause, in XID order, and returns
// how many were invoked. Event-loop only.
func (q *OutboundQueue) failAll(cause error) uint32 {
	upper := q.reserveIndex.Load()
	var failed uint32
	for i := q.completedCount; i < upper; i++ {
		e := &q.slots[i]
		if e.loadState() == stateCompleted {
			continue
		}
		if e.completion != nil {
			e.completion(callback.Failed(cause))
			failed++
		}
		e.storeState(stateCompleted)
	}
	q.completedCount = upper
	return failed
}

// isEmpty reports whether every committed entry has been flushed.
func (q *OutboundQueue) isEmpty() bool {
	return q.flushIndex == q.commitIndex.Load()
}

// isFlushed reports whether this generation has emitted every slot it
// owns, i.e. it can no longer accept flush work and, once reserveIndex
// also reaches capacity, can no longer accept reservations either.
func (q *OutboundQueue) isFlushed() bool {
	return q.flushIndex == q.capacity
}

// isFinished reports whether no response is still outstanding.
func (q *OutboundQueue) isFinished() bool {
	return q.completedCount == q.reserveIndex.Load()
}
