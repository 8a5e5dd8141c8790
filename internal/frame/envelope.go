package frame

import "net"

// Envelope wraps a Frame for delivery through ChannelAdapter.Write. The
// flush loop never writes a bare Frame; it always wraps it first so that
// UDP channels can carry a destination address alongside the message.
type Envelope interface {
	Frame() Frame
}

// TCPEnvelope carries a frame over a connection-oriented channel. It has
// no addressing information: the channel already knows its one peer.
type TCPEnvelope struct {
	frame Frame
}

// NewTCPEnvelope wraps f for a TCP (or equivalent stream) channel.
func NewTCPEnvelope(f Frame) TCPEnvelope { return TCPEnvelope{frame: f} }

// Frame returns the wrapped message.
func (e TCPEnvelope) Frame() Frame { return e.frame }

// UDPEnvelope carries a frame plus the remote address it must be sent to,
// since a UDP channel is shared across many switches.
type UDPEnvelope struct {
	frame  Frame
	remote net.Addr
}

// NewUDPEnvelope wraps f with the remote address it is destined for.
func NewUDPEnvelope(f Frame, remote net.Addr) UDPEnvelope {
	return UDPEnvelope{frame: f, remote: remote}
}

// Frame returns the wrapped message.
func (e UDPEnvelope) Frame() Frame { return e.frame }

// Remote returns the destination address for this message.
func (e UDPEnvelope) Remote() net.Addr { return e.remote }
