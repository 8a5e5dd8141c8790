package queue

// testFrame is a minimal frame.Frame used across this package's tests.
type testFrame struct {
	xid     uint32
	barrier bool
}

func (f testFrame) XID() uint32    { return f.xid }
func (f testFrame) IsBarrier() bool { return f.barrier }
