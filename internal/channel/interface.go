// Package channel declares the transport seam the queue manager requires
// from its caller. It is specified, not implemented: the manager never
// constructs a concrete Adapter, and this module ships no production
// transport behind it (see internal/loopback for a reference/test one).
package channel

import (
	"time"

	"github.com/openflow-go/flowqueue/internal/frame"
)

// Task is a unit of work submitted to an EventLoop.
type Task func()

// EventLoop is the single thread all manager-owned state is confined to.
// Execute and Schedule may be called from any goroutine; the manager
// calls Execute from producer goroutines too, when Commit schedules a
// flush.
type EventLoop interface {
	// Execute enqueues task to run on the loop with no delay.
	Execute(task Task)

	// Schedule enqueues task to run on the loop after delay elapses.
	// It returns a handle that can cancel the task if it has not yet
	// fired.
	Schedule(task Task, delay time.Duration) Timer
}

// Timer is a handle to a task scheduled with EventLoop.Schedule.
type Timer interface {
	// Stop cancels the scheduled task. It is a no-op if the task has
	// already fired or already been stopped.
	Stop()
}

// Adapter is the transport primitive the manager drives. All methods are
// non-blocking; Write buffers internally and Flush requests the adapter
// push any buffered writes out. Every callback the adapter makes back
// into the manager (not declared here; see internal/callback) is
// guaranteed to run on the EventLoop returned by EventLoop().
type Adapter interface {
	// IsWritable reports whether the channel will currently accept a
	// Write without unbounded internal buffering.
	IsWritable() bool

	// Write buffers env for transmission. It never blocks.
	Write(env frame.Envelope)

	// Flush requests that any writes buffered since the last Flush be
	// pushed to the wire.
	Flush()

	// EventLoop returns the loop this adapter's callbacks run on.
	EventLoop() EventLoop
}
