// Package loopback provides a runnable, in-memory implementation of
// internal/channel's Adapter/EventLoop seam, used by the demo command
// and integration tests in place of a real socket transport.
package loopback

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openflow-go/flowqueue/internal/channel"
	"github.com/openflow-go/flowqueue/internal/frame"
)

// EventLoop is a single goroutine draining a task queue, satisfying the
// one hard requirement every Manager method relies on: every task it
// runs, runs on the same thread as every other task it runs.
type EventLoop struct {
	tasks chan channel.Task
}

// NewEventLoop creates an EventLoop with a bounded backlog. Run must be
// called once, from the goroutine that will own the loop, before any
// Manager driven by this loop is useful.
func NewEventLoop(backlog int) *EventLoop {
	if backlog <= 0 {
		backlog = 256
	}
	return &EventLoop{tasks: make(chan channel.Task, backlog)}
}

// Execute implements channel.EventLoop.
func (l *EventLoop) Execute(task channel.Task) { l.tasks <- task }

// Schedule implements channel.EventLoop by handing the delay to
// time.AfterFunc, which enqueues task onto the loop once it fires
// rather than running it on the timer's own goroutine.
func (l *EventLoop) Schedule(task channel.Task, delay time.Duration) channel.Timer {
	t := time.AfterFunc(delay, func() { l.Execute(task) })
	return timerHandle{t}
}

type timerHandle struct{ t *time.Timer }

func (h timerHandle) Stop() { h.t.Stop() }

// Run drains tasks until ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-l.tasks:
			task()
		}
	}
}

// Adapter is an in-memory channel.Adapter. Writes are buffered onto a
// channel a peer (a Switch, or another Adapter via Connect) drains;
// Write blocks once backlog frames are waiting undrained. Flush is a
// no-op since there is no OS-level buffer to push.
type Adapter struct {
	loop     *EventLoop
	outbound chan frame.Envelope
	writable atomic.Bool
}

// NewAdapter creates an Adapter whose callbacks run on loop.
func NewAdapter(loop *EventLoop, backlog int) *Adapter {
	if backlog <= 0 {
		backlog = 256
	}
	a := &Adapter{loop: loop, outbound: make(chan frame.Envelope, backlog)}
	a.writable.Store(true)
	return a
}

// IsWritable implements channel.Adapter.
func (a *Adapter) IsWritable() bool { return a.writable.Load() }

// SetWritable flips writability. It does not itself notify any
// Manager; callers that want the flush loop to react must also invoke
// the Manager's ChannelWritabilityChanged on the event loop.
func (a *Adapter) SetWritable(w bool) { a.writable.Store(w) }

// Write implements channel.Adapter.
func (a *Adapter) Write(env frame.Envelope) { a.outbound <- env }

// Flush implements channel.Adapter.
func (a *Adapter) Flush() {}

// EventLoop implements channel.Adapter.
func (a *Adapter) EventLoop() channel.EventLoop { return a.loop }

// Outbound exposes the channel a peer drains to see what this adapter
// has written.
func (a *Adapter) Outbound() <-chan frame.Envelope { return a.outbound }

// Responder turns a flushed request into the response that should be
// delivered back, or nil to drop it (simulating a dropped frame or a
// request that genuinely gets no response outside of barrier pairing).
type Responder func(req frame.Frame) frame.Frame

// receiver is the minimal surface a Switch needs from whatever owns the
// Manager on the other end of an Adapter.
type receiver interface {
	OnMessage(resp frame.Frame) bool
}

// Switch drains one Adapter's outbound frames, answers them via respond,
// and delivers the response back to mgr on the adapter's own event
// loop, matching the "every callback into the manager runs on its
// event loop" contract.
type Switch struct {
	adapter *Adapter
	mgr     receiver
	respond Responder
}

// NewSwitch builds a Switch that answers everything adapter writes.
func NewSwitch(adapter *Adapter, mgr receiver, respond Responder) *Switch {
	return &Switch{adapter: adapter, mgr: mgr, respond: respond}
}

// Run drains adapter.Outbound until ctx is cancelled.
func (s *Switch) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-s.adapter.Outbound():
			resp := s.respond(env.Frame())
			if resp == nil {
				continue
			}
			s.adapter.EventLoop().Execute(func() { s.mgr.OnMessage(resp) })
		}
	}
}

// Connect cross-wires two Adapter/receiver pairs so that every frame
// one side writes is delivered, unmodified, as a response on the
// other's Manager. Useful for exercising two real flowqueue managers
// against each other instead of a scripted Responder. It blocks until
// ctx is cancelled or either direction's goroutine errors.
func Connect(ctx context.Context, left *Adapter, leftMgr receiver, right *Adapter, rightMgr receiver) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return forward(ctx, left, right, rightMgr) })
	g.Go(func() error { return forward(ctx, right, left, leftMgr) })
	return g.Wait()
}

// forward delivers every frame written to "from" as a response on "to",
// scheduled on toAdapter's own event loop since that is the loop toMgr's
// callbacks are contractually bound to run on.
func forward(ctx context.Context, from, toAdapter *Adapter, toMgr receiver) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-from.Outbound():
			frm := env.Frame()
			toAdapter.EventLoop().Execute(func() { toMgr.OnMessage(frm) })
		}
	}
}
