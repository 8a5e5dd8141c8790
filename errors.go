package flowqueue

import (
	"errors"
	"fmt"

	"github.com/openflow-go/flowqueue/internal/queue"
)

// Sentinel causes, re-exported from internal/queue so callers can compare
// with errors.Is without reaching into an internal package. Every *Error
// this package returns wraps exactly one of these.
var (
	ErrCapacityExhausted = queue.ErrCapacityExhausted
	ErrDisconnected      = queue.ErrDisconnected
	ErrRejected          = queue.ErrRejected
	ErrUnknownXID        = queue.ErrUnknownXID
)

// Code categorizes an Error for callers that want to branch on outcome
// without comparing against a specific sentinel.
type Code string

const (
	CodeCapacityExhausted Code = "capacity exhausted"
	CodeDisconnected      Code = "disconnected"
	CodeRejected          Code = "rejected"
	CodeUnknownXID        Code = "unknown xid"
	CodeUnknown           Code = "unknown"
)

// Error is the structured form every exported operation returns on
// failure. ChannelID and XID are zero-valued when not applicable to the
// failing operation.
type Error struct {
	Op        string
	ChannelID string
	XID       uint32
	Code      Code
	Inner     error
}

func (e *Error) Error() string {
	if e.ChannelID != "" {
		return fmt.Sprintf("flowqueue: %s: op=%s channel=%s xid=%d: %v", e.Code, e.Op, e.ChannelID, e.XID, e.Inner)
	}
	return fmt.Sprintf("flowqueue: %s: op=%s: %v", e.Code, e.Op, e.Inner)
}

// Unwrap exposes the wrapped sentinel for errors.Is/As.
func (e *Error) Unwrap() error { return e.Inner }

// Is lets errors.Is(err, otherErr) match on Code for two *Error values,
// and fall back to matching the wrapped sentinel otherwise.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return errors.Is(e.Inner, target)
}

// wrapError attaches op/channel/xid context to a sentinel error raised by
// internal/queue, mapping it to the matching Code. Returns nil if err is
// nil.
func wrapError(op, channelID string, xid uint32, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:        op,
		ChannelID: channelID,
		XID:       xid,
		Code:      mapCauseToCode(err),
		Inner:     err,
	}
}

// mapCauseToCode maps a sentinel raised by internal/queue to its Code.
func mapCauseToCode(err error) Code {
	switch {
	case errors.Is(err, queue.ErrCapacityExhausted):
		return CodeCapacityExhausted
	case errors.Is(err, queue.ErrDisconnected):
		return CodeDisconnected
	case errors.Is(err, queue.ErrRejected):
		return CodeRejected
	case errors.Is(err, queue.ErrUnknownXID):
		return CodeUnknownXID
	default:
		return CodeUnknown
	}
}

// IsCode reports whether err is a *Error (at any wrapping depth) with the
// given Code.
func IsCode(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}
