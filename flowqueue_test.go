package flowqueue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openflow-go/flowqueue"
)

type recordingHandler struct {
	changes []flowqueue.Reserver
}

func (h *recordingHandler) CreateBarrierRequest(xid uint32) flowqueue.Frame {
	return flowqueue.StubFrame{XIDValue: xid, BarrierValue: true}
}

func (h *recordingHandler) OnConnectionQueueChanged(current flowqueue.Reserver) {
	h.changes = append(h.changes, current)
}

func newHarness(t *testing.T, cfg flowqueue.Config) (*flowqueue.Manager, *flowqueue.FakeAdapter, *recordingHandler) {
	t.Helper()
	loop := flowqueue.NewFakeEventLoop()
	adapter := flowqueue.NewFakeAdapter(loop)
	handler := &recordingHandler{}
	mgr := flowqueue.NewManager(flowqueue.ManagerParams{
		Adapter: adapter,
		Handler: handler,
		Config:  cfg,
	})
	return mgr, adapter, handler
}

func TestManagerReserveCommitRoundTrip(t *testing.T) {
	mgr, adapter, _ := newHarness(t, flowqueue.Config{QueueSize: 4})

	var result flowqueue.Result
	xid, err := mgr.Reserve(false)
	require.NoError(t, err)
	err = mgr.Commit(xid, flowqueue.StubFrame{XIDValue: xid}, func(r flowqueue.Result) { result = r })
	require.NoError(t, err)

	require.Len(t, adapter.Written(), 1)
	assert.Equal(t, xid, adapter.Written()[0].XID())

	matched := mgr.OnMessage(flowqueue.StubFrame{XIDValue: xid})
	assert.True(t, matched)
	assert.NoError(t, result.Err)
	require.NotNil(t, result.Response)
	assert.Equal(t, xid, result.Response.XID())
}

func TestManagerCommitUnknownXIDReturnsStructuredError(t *testing.T) {
	mgr, _, _ := newHarness(t, flowqueue.Config{})

	err := mgr.Commit(999999, flowqueue.StubFrame{XIDValue: 999999}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, flowqueue.ErrUnknownXID)
	assert.True(t, flowqueue.IsCode(err, flowqueue.CodeUnknownXID))

	var fe *flowqueue.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Commit", fe.Op)
}

func TestManagerDisconnectFailsOutstanding(t *testing.T) {
	mgr, _, handler := newHarness(t, flowqueue.Config{QueueSize: 4})

	var result flowqueue.Result
	xid, err := mgr.Reserve(false)
	require.NoError(t, err)
	require.NoError(t, mgr.Commit(xid, flowqueue.StubFrame{XIDValue: xid}, func(r flowqueue.Result) { result = r }))

	mgr.ChannelInactive()

	assert.ErrorIs(t, result.Err, flowqueue.ErrDisconnected)
	assert.Nil(t, result.Response)

	_, err = mgr.Reserve(false)
	assert.ErrorIs(t, err, flowqueue.ErrDisconnected)

	require.NotEmpty(t, handler.changes)
	assert.Nil(t, handler.changes[len(handler.changes)-1], "last change must announce teardown")
}

func TestManagerCapacityExhaustedSurfacesAsStructuredError(t *testing.T) {
	mgr, _, _ := newHarness(t, flowqueue.Config{QueueSize: 1})

	// capacity is QueueSize+1 = 2; exhaust both slots.
	_, err := mgr.Reserve(false)
	require.NoError(t, err)
	_, err = mgr.Reserve(false)
	require.NoError(t, err)

	_, err = mgr.Reserve(false)
	require.Error(t, err)
	assert.True(t, flowqueue.IsCode(err, flowqueue.CodeCapacityExhausted))
}

func TestDefaultConfigMatchesDocumentedDefaults(t *testing.T) {
	cfg := flowqueue.DefaultConfig()
	assert.EqualValues(t, 256, cfg.QueueSize)
	assert.EqualValues(t, 4, cfg.QueueCacheCapacity)
}
