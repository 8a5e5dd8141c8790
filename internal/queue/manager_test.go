package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openflow-go/flowqueue/internal/callback"
)

func reserveAndCommit(t *testing.T, h *testHarness, results *[]callback.Result) uint32 {
	t.Helper()
	xid, err := h.mgr.Reserve(false)
	require.NoError(t, err)
	idx := len(*results)
	*results = append(*results, callback.Result{})
	err = h.mgr.Commit(xid, testFrame{xid: xid}, func(r callback.Result) { (*results)[idx] = r })
	require.NoError(t, err)
	return xid
}

func TestManagerXIDsAreMonotonicAcrossGenerations(t *testing.T) {
	h := newTestHarness(Config{QueueSize: 2}) // capacity 3: rolls over fast
	var results []callback.Result
	var xids []uint32
	for i := 0; i < 7; i++ {
		xids = append(xids, reserveAndCommit(t, h, &results))
	}
	for i := 1; i < len(xids); i++ {
		assert.Greater(t, xids[i], xids[i-1])
	}
}

// Scenario 3: count-triggered barrier.
func TestManagerCountTriggeredBarrier(t *testing.T) {
	h := newTestHarness(Config{QueueSize: 4})
	var results []callback.Result
	for i := 0; i < 4; i++ {
		reserveAndCommit(t, h, &results)
	}

	written := h.adapter.writtenFrames()
	require.Len(t, written, 5)
	assert.True(t, written[4].IsBarrier(), "5th frame on the wire must be the count-triggered barrier")
	for i := 0; i < 4; i++ {
		assert.False(t, written[i].IsBarrier())
	}
}

// Scenario 4: time-triggered barrier, and its negative case.
func TestManagerTimeTriggeredBarrier(t *testing.T) {
	h := newTestHarness(Config{MaxBarrierNanos: int64(time.Millisecond)})
	var results []callback.Result
	reserveAndCommit(t, h, &results)

	h.clock.Advance(time.Millisecond)
	h.adapter.loop.last().fire()

	written := h.adapter.writtenFrames()
	require.Len(t, written, 2)
	assert.True(t, written[1].IsBarrier())
}

func TestManagerTimeTriggeredBarrierSkippedWhenIdle(t *testing.T) {
	h := newTestHarness(Config{MaxBarrierNanos: int64(time.Millisecond)})
	h.clock.Advance(time.Millisecond)
	h.adapter.loop.last().fire()

	assert.Empty(t, h.adapter.writtenFrames(), "no barrier should fire when nothing was written")
}

// Scenario 5: barrier cascade retires the completed older generation
// and implies success for its other entries.
func TestManagerBarrierCascade(t *testing.T) {
	h := newTestHarness(Config{QueueSize: 2}) // capacity 3: generation A fills in 2 commits
	var results []callback.Result
	reserveAndCommit(t, h, &results) // xid for generation A, slot 0
	reserveAndCommit(t, h, &results) // generation A, slot 1; triggers its trailing barrier

	written := h.adapter.writtenFrames()
	require.Len(t, written, 3)
	barrierXID := written[2].XID()

	reserveAndCommit(t, h, &results) // generation B, slot 0
	require.Len(t, h.mgr.activeQueues, 2, "generation A is full but not yet retired")

	matched := h.mgr.OnMessage(testFrame{xid: barrierXID})
	assert.True(t, matched)

	require.Len(t, h.mgr.activeQueues, 1, "generation A must be retired once its barrier is acked")
	assert.NoError(t, results[0].Err)
	assert.Nil(t, results[0].Response, "slot 0 never got a direct response, only implied success")
	assert.NoError(t, results[1].Err)
	assert.Nil(t, results[1].Response)
}

// Scenario 6: disconnect mid-flight.
func TestManagerDisconnectMidFlight(t *testing.T) {
	h := newTestHarness(Config{QueueSize: 20})
	var results []callback.Result
	for i := 0; i < 6; i++ {
		reserveAndCommit(t, h, &results)
	}
	require.Len(t, h.adapter.writtenFrames(), 6)

	h.adapter.setWritable(false)
	for i := 0; i < 4; i++ {
		reserveAndCommit(t, h, &results)
	}
	require.Len(t, h.adapter.writtenFrames(), 6, "writes past the writability gate must not reach the wire")

	require.True(t, h.mgr.OnMessage(testFrame{xid: 0}))
	require.True(t, h.mgr.OnMessage(testFrame{xid: 3}))

	h.mgr.ChannelInactive()

	for _, completed := range []int{0, 3} {
		assert.NoError(t, results[completed].Err)
		assert.NotNil(t, results[completed].Response)
	}
	for i := 0; i < 10; i++ {
		if i == 0 || i == 3 {
			continue
		}
		assert.ErrorIs(t, results[i].Err, ErrDisconnected, "entry %d must fail on disconnect", i)
	}
	assert.Empty(t, h.mgr.activeQueues)
}

func TestManagerReserveFailsAfterDisconnect(t *testing.T) {
	h := newTestHarness(Config{})
	h.mgr.ChannelInactive()

	_, err := h.mgr.Reserve(false)
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestManagerCommitAfterDisconnectReturnsErrDisconnected(t *testing.T) {
	h := newTestHarness(Config{})
	xid, err := h.mgr.Reserve(false)
	require.NoError(t, err)

	h.mgr.ChannelInactive()

	err = h.mgr.Commit(xid, testFrame{xid: xid}, nil)
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestManagerOnConnectionQueueChangedNotifiesHandler(t *testing.T) {
	h := newTestHarness(Config{QueueSize: 1}) // capacity 2: rolls over often
	var results []callback.Result
	for i := 0; i < 3; i++ {
		reserveAndCommit(t, h, &results)
	}

	h.handler.mu.Lock()
	defer h.handler.mu.Unlock()
	assert.GreaterOrEqual(t, len(h.handler.changes), 2, "at least the initial generation and one rollover")
	for _, c := range h.handler.changes {
		assert.NotNil(t, c)
	}
}
