// Package frame defines the wire-opaque request/response contract the
// queue core operates on. Codecs that produce and parse the actual bytes
// on the wire live outside this module; frame only describes the two
// facts the core needs to route a message: its transaction id and
// whether it is a barrier.
package frame

// Frame is a single OpenFlow message, request or response. The core never
// inspects a Frame beyond these two accessors.
type Frame interface {
	// XID returns the transaction identifier carried by the message.
	XID() uint32

	// IsBarrier reports whether this message is a barrier request or
	// a barrier reply.
	IsBarrier() bool
}
