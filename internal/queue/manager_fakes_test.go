package queue

import (
	"sync"
	"time"

	"github.com/openflow-go/flowqueue/internal/callback"
	"github.com/openflow-go/flowqueue/internal/channel"
	"github.com/openflow-go/flowqueue/internal/frame"
)

// fakeTimer records the task Schedule was given so a test can fire it
// deterministically instead of waiting on a real clock.
type fakeTimer struct {
	task    channel.Task
	delay   time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() { t.stopped = true }
func (t *fakeTimer) fire() { t.task() }

// fakeEventLoop runs Execute tasks inline (this module has no real
// concurrency story to model in a unit test: the manager's own
// contract is "single thread", and inline execution is that thread)
// and records every Schedule call so tests can fire timers by hand.
type fakeEventLoop struct {
	mu        sync.Mutex
	scheduled []*fakeTimer
}

func (l *fakeEventLoop) Execute(task channel.Task) { task() }

func (l *fakeEventLoop) Schedule(task channel.Task, delay time.Duration) channel.Timer {
	t := &fakeTimer{task: task, delay: delay}
	l.mu.Lock()
	l.scheduled = append(l.scheduled, t)
	l.mu.Unlock()
	return t
}

func (l *fakeEventLoop) last() *fakeTimer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.scheduled) == 0 {
		return nil
	}
	return l.scheduled[len(l.scheduled)-1]
}

// fakeAdapter is a channel.Adapter that records writes instead of
// touching a real transport.
type fakeAdapter struct {
	loop *fakeEventLoop

	mu       sync.Mutex
	writable bool
	written  []frame.Envelope
	flushes  int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{loop: &fakeEventLoop{}, writable: true}
}

func (a *fakeAdapter) IsWritable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writable
}

func (a *fakeAdapter) setWritable(w bool) {
	a.mu.Lock()
	a.writable = w
	a.mu.Unlock()
}

func (a *fakeAdapter) Write(env frame.Envelope) {
	a.mu.Lock()
	a.written = append(a.written, env)
	a.mu.Unlock()
}

func (a *fakeAdapter) Flush() {
	a.mu.Lock()
	a.flushes++
	a.mu.Unlock()
}

func (a *fakeAdapter) EventLoop() channel.EventLoop { return a.loop }

func (a *fakeAdapter) writtenFrames() []frame.Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]frame.Frame, len(a.written))
	for i, e := range a.written {
		out[i] = e.Frame()
	}
	return out
}

// fakeHandler is a callback.ConnectionHandler that builds bare barrier
// frames and records every reservation-target change.
type fakeHandler struct {
	mu      sync.Mutex
	changes []callback.Reserver
}

func (h *fakeHandler) CreateBarrierRequest(xid uint32) frame.Frame {
	return testFrame{xid: xid, barrier: true}
}

func (h *fakeHandler) OnConnectionQueueChanged(current callback.Reserver) {
	h.mu.Lock()
	h.changes = append(h.changes, current)
	h.mu.Unlock()
}

// manualClock is a Clock a test advances by hand.
type manualClock struct {
	mu  sync.Mutex
	now int64
}

func (c *manualClock) NowNanos() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += int64(d)
	c.mu.Unlock()
}

type testHarness struct {
	adapter *fakeAdapter
	handler *fakeHandler
	clock   *manualClock
	mgr     *Manager
}

func newTestHarness(cfg Config) *testHarness {
	h := &testHarness{
		adapter: newFakeAdapter(),
		handler: &fakeHandler{},
		clock:   &manualClock{},
	}
	h.mgr = NewManager(ManagerParams{
		Adapter: h.adapter,
		Handler: h.handler,
		Config:  cfg,
		Clock:   h.clock,
	})
	return h
}

func collectCompletion(results *[]callback.Result) callback.Completion {
	return func(r callback.Result) { *results = append(*results, r) }
}
