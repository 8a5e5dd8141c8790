// Package queue implements the outbound request/response queue core: a
// single-writer, multi-producer pipeline of fixed-capacity generations,
// periodic and count-triggered barriers, and response pairing with
// cascading completion.
package queue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openflow-go/flowqueue/internal/callback"
	"github.com/openflow-go/flowqueue/internal/channel"
	"github.com/openflow-go/flowqueue/internal/frame"
	"github.com/openflow-go/flowqueue/internal/logging"
)

// ManagerParams configures a new Manager. Adapter and Handler are
// required; everything else has a usable zero value.
type ManagerParams struct {
	ChannelID uuid.UUID
	Adapter   channel.Adapter
	Handler   callback.ConnectionHandler
	Config    Config

	Clock    Clock
	Logger   *logging.Logger
	Tracer   trace.Tracer
	Observer Observer

	// Envelope wraps a flushed frame for the adapter's Write call.
	// Defaults to frame.NewTCPEnvelope.
	Envelope func(frame.Frame) frame.Envelope
}

// Manager is one channel's outbound queue: the generation pipeline, the
// barrier policy, and the response-pairing state machine. A Manager is
// created once a channel becomes active and lives exactly as long as
// that channel does.
//
// Fields fall into two disjoint categories. Reserve and Commit are
// called from arbitrary producer goroutines and touch only
// currentQueue (an atomic.Pointer), genSnapshot (a copy-on-write
// published slice) and the flushScheduled flag; everything else - activeQueues, cache, lastXid,
// lastBarrierNanos, nonBarrierMessages, barrierTimer - is read and
// written exclusively by the event loop the adapter runs on.
type Manager struct {
	id      uuid.UUID
	adapter channel.Adapter
	handler callback.ConnectionHandler
	cfg     Config
	clock   Clock
	logger  *logging.Logger
	tracer  trace.Tracer
	obs     Observer
	envelope func(frame.Frame) frame.Envelope

	activeQueues []*OutboundQueue
	cache        *generationCache
	lastXid      uint32

	lastBarrierNanos   int64
	nonBarrierMessages uint32
	barrierTimer       channel.Timer

	currentQueue atomic.Pointer[OutboundQueue]
	genSnapshot  atomic.Pointer[[]*OutboundQueue]
	flushScheduled atomic.Bool
}

// NewManager constructs a Manager and performs channel-activation
// setup: allocate the first generation and arm the periodic barrier
// timer. Must be called from the event loop the adapter reports via
// Adapter.EventLoop.
func NewManager(p ManagerParams) *Manager {
	if p.ChannelID == uuid.Nil {
		p.ChannelID = uuid.New()
	}
	if p.Clock == nil {
		p.Clock = NewMonotonicClock()
	}
	if p.Logger == nil {
		p.Logger = logging.Default()
	}
	if p.Tracer == nil {
		p.Tracer = otel.GetTracerProvider().Tracer("flowqueue")
	}
	if p.Observer == nil {
		p.Observer = NoOpObserver
	}
	if p.Envelope == nil {
		p.Envelope = func(f frame.Frame) frame.Envelope { return frame.NewTCPEnvelope(f) }
	}

	m := &Manager{
		id:       p.ChannelID,
		adapter:  p.Adapter,
		handler:  p.Handler,
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		logger:   p.Logger,
		tracer:   p.Tracer,
		obs:      p.Observer,
		envelope: p.Envelope,
		cache:    newGenerationCache(p.Config.withDefaults().QueueCacheCapacity),
	}

	m.lastBarrierNanos = m.clock.NowNanos()
	m.allocateGeneration()
	m.barrierTimer = m.adapter.EventLoop().Schedule(m.barrier, time.Duration(m.cfg.MaxBarrierNanos))
	return m
}

// ChannelID identifies this manager's channel, for logging and tracing.
func (m *Manager) ChannelID() uuid.UUID { return m.id }

// Reserve claims the next free slot of the current generation. Safe to
// call from any goroutine.
func (m *Manager) Reserve(isBarrier bool) (uint32, error) {
	q := m.currentQueue.Load()
	if q == nil {
		return 0, ErrDisconnected
	}
	xid, ok := q.reserveEntry(isBarrier)
	if !ok {
		m.obs.ObserveReserveFailure()
		return 0, ErrCapacityExhausted
	}
	return xid, nil
}

// Commit attaches a request body and completion to a previously
// reserved xid, then ensures the flush loop is scheduled. Safe to call
// from any goroutine; xid's generation is located via a lock-free
// snapshot rather than the event-loop-confined activeQueues slice.
func (m *Manager) Commit(xid uint32, req frame.Frame, completion callback.Completion) error {
	snap := m.genSnapshot.Load()
	if snap == nil {
		return ErrDisconnected
	}
	for _, g := range *snap {
		if xid < g.BaseXID() || xid >= g.BaseXID()+g.Capacity() {
			continue
		}
		if !g.commitEntry(xid, req, completion) {
			return ErrRejected
		}
		m.ensureFlushing()
		return nil
	}
	return ErrUnknownXID
}

// ensureFlushing schedules flush onto the event loop at most once per
// idle period: the CAS only succeeds for the producer that transitions
// flushScheduled false->true, so concurrent committers never queue more
// than one flush task.
func (m *Manager) ensureFlushing() {
	if m.flushScheduled.CompareAndSwap(false, true) {
		m.adapter.EventLoop().Execute(m.flush)
	}
}

// flush drains committed entries of the current generation onto the
// wire until one of three conditions holds: the channel stops being
// writable, the queue is drained, or the per-iteration work budget is
// exhausted. Event-loop only.
func (m *Manager) flush() {
	_, span := m.tracer.Start(context.Background(), "flowqueue.flush",
		trace.WithAttributes(attribute.String("channel_id", m.id.String())))
	defer span.End()

	start := m.clock.NowNanos()
	wrote := 0
	budgetExhausted := false

	for {
		q := m.currentQueue.Load()
		if q == nil {
			break
		}
		if !m.adapter.IsWritable() {
			break
		}
		e, ok := q.flushEntry()
		if !ok {
			break
		}

		m.adapter.Write(m.envelope(e.request))
		wrote++

		if e.IsBarrier() {
			m.lastBarrierNanos = start
			m.nonBarrierMessages = 0
		} else {
			m.nonBarrierMessages++
			if m.nonBarrierMessages >= m.cfg.QueueSize {
				m.scheduleBarrierMessage("count")
			}
		}

		if q.isFlushed() {
			m.allocateGeneration()
		}

		if m.cfg.WorktimeRecheckInterval > 0 && uint32(wrote)%m.cfg.WorktimeRecheckInterval == 0 {
			if m.clock.NowNanos()-start >= m.cfg.MaxWorkTimeNanos {
				budgetExhausted = true
				break
			}
		}
	}

	if wrote > 0 {
		m.adapter.Flush()
	}
	span.SetAttributes(attribute.Int("frames_written", wrote), attribute.Bool("budget_exhausted", budgetExhausted))
	m.obs.ObserveFlush(wrote, time.Duration(m.clock.NowNanos()-start), budgetExhausted)

	m.flushScheduled.CompareAndSwap(true, false)

	// Close the race where a commit landed after the loop's last
	// isWritable/isEmpty check but before flushScheduled cleared. An
	// unwritable channel is left for ChannelWritabilityChanged to resume.
	if cq := m.currentQueue.Load(); cq != nil && !cq.isEmpty() && m.adapter.IsWritable() {
		m.ensureFlushing()
	}
}

// scheduleBarrierMessage reserves and commits a barrier entry against
// the current generation on the caller's behalf, so neither the
// count-threshold path nor the periodic timer needs a ConnectionHandler
// round trip to stay inside the event loop. Event-loop only.
func (m *Manager) scheduleBarrierMessage(trigger string) {
	q := m.currentQueue.Load()
	if q == nil {
		return
	}
	xid, ok := q.reserveEntry(true)
	if !ok {
		// Generation is full; the pending roll-over will create a fresh
		// one on the next flush, and the periodic timer will retry.
		return
	}
	var req frame.Frame
	if m.handler != nil {
		req = m.handler.CreateBarrierRequest(xid)
	}
	q.commitEntry(xid, req, nil)
	m.nonBarrierMessages = 0
	m.obs.ObserveBarrierScheduled(trigger)
	m.ensureFlushing()
}

// barrier is the periodic timer task: if at least maxBarrierNanos has
// elapsed since the last barrier and at least one non-barrier message
// has gone out since then, it schedules one, then re-arms itself.
// Event-loop only.
func (m *Manager) barrier() {
	if m.currentQueue.Load() == nil {
		return // channel torn down; let the timer die with it
	}

	now := m.clock.NowNanos()
	if now-m.lastBarrierNanos >= m.cfg.MaxBarrierNanos && m.nonBarrierMessages > 0 {
		m.scheduleBarrierMessage("time")
	}

	next := m.lastBarrierNanos + m.cfg.MaxBarrierNanos
	delay := time.Duration(next - now)
	if delay < 0 {
		// lastBarrierNanos only advances inside flush(); if the adapter
		// isn't writable, flush() writes nothing and next stays stuck in
		// the past forever. Re-arming at delay 0 would busy-spin the
		// event loop for the entire unwritable window, so fall back to a
		// full period instead of now+0.
		delay = time.Duration(m.cfg.MaxBarrierNanos)
	}
	m.barrierTimer = m.adapter.EventLoop().Schedule(m.barrier, delay)
}

// OnMessage pairs an inbound response with its outstanding request. A
// matched barrier response cascades: every generation strictly older
// than the one it matched is force-completed and retired, since a
// barrier ack proves the device has processed everything queued ahead
// of it. Returns false if no outstanding entry matches resp's XID.
// Event-loop only (the adapter is required to deliver inbound messages
// there).
func (m *Manager) OnMessage(resp frame.Frame) bool {
	_, span := m.tracer.Start(context.Background(), "flowqueue.pair",
		trace.WithAttributes(attribute.String("channel_id", m.id.String()), attribute.Int64("xid", int64(resp.XID()))))
	defer span.End()

	cur := m.currentQueue.Load()

	for _, q := range m.activeQueues {
		entry, matched := q.pairRequest(resp)
		if !matched {
			continue
		}
		span.SetAttributes(attribute.Bool("matched", true), attribute.Bool("is_barrier", entry.IsBarrier()))

		if entry.IsBarrier() {
			// A barrier ack guarantees the switch has processed every
			// request queued ahead of it, including ones in its own
			// generation that never received a direct response. Force
			// those, then cascade the same guarantee to every strictly
			// older generation and retire them.
			//
			// completeAll forces every flushed slot up to q's
			// reserveIndex, not just the ones ahead of this barrier. A
			// time-triggered barrier can land mid-generation, in which
			// case entries reserved after it are also force-completed
			// here and their later real responses will miss as
			// protocol mismatches instead of pairing normally.
			q.completeAll()
			for len(m.activeQueues) > 0 && m.activeQueues[0] != q {
				older := m.activeQueues[0]
				older.completeAll()
				m.removeGeneration(older)
			}
		}

		if q != cur && q.isFinished() {
			m.removeGeneration(q)
		}
		return true
	}

	span.SetAttributes(attribute.Bool("matched", false))
	m.obs.ObserveProtocolMismatch()
	m.logger.Warnf("unmatched response: channel=%s xid=%d", m.id, resp.XID())
	return false
}

// ChannelActive notifies the manager that the adapter's channel just
// became active. If the current generation already has committed but
// unflushed work, flushing resumes immediately.
func (m *Manager) ChannelActive() {
	m.conditionalFlush()
}

// ChannelWritabilityChanged notifies the manager that the adapter's
// writability flipped; if it flipped to writable and work is pending,
// flushing resumes.
func (m *Manager) ChannelWritabilityChanged() {
	m.conditionalFlush()
}

func (m *Manager) conditionalFlush() {
	if cq := m.currentQueue.Load(); cq != nil && !cq.isEmpty() {
		m.ensureFlushing()
	}
}

// ChannelInactive notifies the manager that the channel has gone down
// for good. Every outstanding completion across every active
// generation is invoked with ErrDisconnected, the barrier timer is
// stopped, and the manager stops accepting new reservations.
func (m *Manager) ChannelInactive() {
	m.currentQueue.Store(nil)
	if m.handler != nil {
		m.handler.OnConnectionQueueChanged(nil)
	}

	var failed uint32
	for _, q := range m.activeQueues {
		failed += q.failAll(ErrDisconnected)
	}
	m.activeQueues = nil
	m.genSnapshot.Store(nil)

	if m.barrierTimer != nil {
		m.barrierTimer.Stop()
	}
	m.obs.ObserveDisconnect(failed)
	m.logger.Infof("channel inactive: channel=%s failed=%d", m.id, failed)
}

// allocateGeneration creates the next generation (reusing a retired one
// from cache when available), publishes it as the new reservation
// target, and notifies the handler. Event-loop only.
func (m *Manager) allocateGeneration() *OutboundQueue {
	capacity := m.cfg.capacity()

	var q *OutboundQueue
	if cached := m.cache.get(); cached != nil {
		cached.reuse(m.lastXid)
		q = cached
	} else {
		q = newOutboundQueue(m.lastXid, capacity)
	}
	m.lastXid += capacity

	m.activeQueues = append(m.activeQueues, q)
	m.publishSnapshot()
	m.currentQueue.Store(q)

	if m.handler != nil {
		m.handler.OnConnectionQueueChanged(q)
	}
	return q
}

// removeGeneration drops a retired, finished generation from
// activeQueues and offers it to the reuse cache. The current generation
// is never removed here even if isFinished holds for it: it may still
// accept future reservations, so it must remain the array slot that
// currentQueue aliases into. Event-loop only.
func (m *Manager) removeGeneration(q *OutboundQueue) {
	for i, g := range m.activeQueues {
		if g != q {
			continue
		}
		m.activeQueues = append(m.activeQueues[:i], m.activeQueues[i+1:]...)
		m.publishSnapshot()
		m.cache.put(q)
		return
	}
}

// publishSnapshot copies activeQueues into a fresh slice and publishes
// it atomically, so Commit's cross-thread XID lookup never observes a
// slice being mutated in place.
func (m *Manager) publishSnapshot() {
	snap := make([]*OutboundQueue, len(m.activeQueues))
	copy(snap, m.activeQueues)
	m.genSnapshot.Store(&snap)
}
