// Package flowqueue implements the outbound request/response queue core
// of an OpenFlow controller-side channel: fixed-capacity generations of
// in-flight requests, count- and time-triggered barriers, and
// response/barrier pairing with cascading completion, all confined to a
// single caller-supplied event loop per channel.
//
// A Manager owns exactly one channel's queue state from the moment the
// channel becomes active until it goes down for good. Reserve and Commit
// may be called from any goroutine; every other method must run on the
// event loop the channel's Adapter reports.
package flowqueue

import (
	"net"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/openflow-go/flowqueue/internal/callback"
	"github.com/openflow-go/flowqueue/internal/channel"
	"github.com/openflow-go/flowqueue/internal/frame"
	"github.com/openflow-go/flowqueue/internal/logging"
	"github.com/openflow-go/flowqueue/internal/queue"
)

// Frame is a single OpenFlow message, request or response.
type Frame = frame.Frame

// Envelope wraps a Frame for delivery through an Adapter's Write call.
type Envelope = frame.Envelope

// NewTCPEnvelope wraps f for a connection-oriented channel.
func NewTCPEnvelope(f Frame) Envelope { return frame.NewTCPEnvelope(f) }

// NewUDPEnvelope wraps f with the remote address it is destined for,
// since a UDP channel is shared across many peers.
func NewUDPEnvelope(f Frame, remote net.Addr) Envelope { return frame.NewUDPEnvelope(f, remote) }

// Task is a unit of work submitted to an EventLoop.
type Task = channel.Task

// EventLoop is the single thread all manager-owned state is confined to.
type EventLoop = channel.EventLoop

// Timer is a handle to a task scheduled with EventLoop.Schedule.
type Timer = channel.Timer

// Adapter is the transport primitive a Manager drives.
type Adapter = channel.Adapter

// Reserver lets a ConnectionHandler reserve slots in the current
// generation without seeing any other queue internals.
type Reserver = callback.Reserver

// ConnectionHandler supplies the two pieces of caller-specific behavior
// the queue core cannot provide on its own.
type ConnectionHandler = callback.ConnectionHandler

// Result is delivered to a request's completion callback exactly once.
type Result = callback.Result

// Completion is invoked exactly once per committed entry.
type Completion = callback.Completion

// Ok builds a normal, directly-paired result.
func Ok(resp Frame) Result { return callback.Ok(resp) }

// ImpliedSuccess builds the "no direct response, but a later barrier
// closed this out" result.
func ImpliedSuccess() Result { return callback.ImpliedSuccess() }

// Failed builds a terminal-error result.
func Failed(err error) Result { return callback.Failed(err) }

// Logger is the structured logger a Manager writes through.
type Logger = logging.Logger

// ManagerParams configures a new Manager. Adapter and Handler are
// required; every other field has a usable zero value.
type ManagerParams struct {
	// ChannelID identifies this channel for logging, tracing, and
	// metrics. A random one is generated if left zero.
	ChannelID uuid.UUID

	// Adapter is the transport this Manager drives. Required.
	Adapter Adapter

	// Handler supplies barrier-frame construction and reservation-target
	// change notification. Required.
	Handler ConnectionHandler

	// Config is the queue policy. The zero value uses DefaultConfig.
	Config Config

	// Logger receives structured log lines. Defaults to logging.Default().
	Logger *Logger

	// Tracer emits flush/pair spans. Defaults to
	// otel.GetTracerProvider().Tracer("flowqueue"), so installing a
	// global TracerProvider is enough to export them without setting
	// this field.
	Tracer trace.Tracer

	// Observer receives flush/barrier/failure measurements. Defaults to
	// NoOpObserver.
	Observer Observer

	// Envelope wraps a flushed frame for the adapter's Write call.
	// Defaults to NewTCPEnvelope.
	Envelope func(Frame) Envelope
}

// Manager is one channel's outbound queue. Construct one with NewManager
// once the channel becomes active, and call ChannelInactive once it goes
// down for good; a Manager is not reusable across channels.
type Manager struct {
	inner *queue.Manager
}

// NewManager constructs a Manager and performs channel-activation setup:
// allocating the first generation and arming the periodic barrier timer.
// Must be called from the event loop p.Adapter.EventLoop() reports.
func NewManager(p ManagerParams) *Manager {
	return &Manager{inner: queue.NewManager(queue.ManagerParams{
		ChannelID: p.ChannelID,
		Adapter:   p.Adapter,
		Handler:   p.Handler,
		Config:    p.Config.toInternal(),
		Logger:    p.Logger,
		Tracer:    p.Tracer,
		Observer:  p.Observer,
		Envelope:  p.Envelope,
	})}
}

// ChannelID identifies this manager's channel.
func (m *Manager) ChannelID() uuid.UUID { return m.inner.ChannelID() }

// Reserve claims the next free slot of the current generation, returning
// its XID. Safe to call from any goroutine.
func (m *Manager) Reserve(isBarrier bool) (uint32, error) {
	xid, err := m.inner.Reserve(isBarrier)
	if err != nil {
		return 0, wrapError("Reserve", m.inner.ChannelID().String(), 0, err)
	}
	return xid, nil
}

// Commit attaches a request body and completion callback to a
// previously reserved xid. Safe to call from any goroutine.
func (m *Manager) Commit(xid uint32, req Frame, completion Completion) error {
	if err := m.inner.Commit(xid, req, completion); err != nil {
		return wrapError("Commit", m.inner.ChannelID().String(), xid, err)
	}
	return nil
}

// OnMessage pairs an inbound response with its outstanding request,
// cascading completion through older generations if resp closed a
// barrier. Must run on the channel's event loop. Returns false if resp's
// XID matches no outstanding entry.
func (m *Manager) OnMessage(resp Frame) bool { return m.inner.OnMessage(resp) }

// ChannelActive notifies the manager that the channel just became
// active, resuming any pending flush. Must run on the event loop.
func (m *Manager) ChannelActive() { m.inner.ChannelActive() }

// ChannelWritabilityChanged notifies the manager that the adapter's
// writability flipped. Must run on the event loop.
func (m *Manager) ChannelWritabilityChanged() { m.inner.ChannelWritabilityChanged() }

// ChannelInactive notifies the manager that the channel has gone down
// for good, failing every outstanding completion with ErrDisconnected.
// Must run on the event loop.
func (m *Manager) ChannelInactive() { m.inner.ChannelInactive() }
