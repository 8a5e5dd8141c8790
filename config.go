package flowqueue

import "github.com/openflow-go/flowqueue/internal/queue"

// Config is a channel's queue policy: generation size, barrier cadence,
// and the per-flush work budget. The zero value is valid; any field left
// at zero is filled from DefaultConfig.
type Config struct {
	// QueueSize is the maximum number of non-barrier entries per
	// generation. A generation's capacity is QueueSize+1, the extra slot
	// reserved for its trailing barrier.
	QueueSize uint32

	// MaxBarrierNanos upper-bounds the time between outgoing barriers
	// when the channel is otherwise idle of barrier traffic.
	MaxBarrierNanos int64

	// MaxWorkTimeNanos bounds a single flush iteration's wall-clock
	// budget, so one channel's backlog can never starve a shared event
	// loop.
	MaxWorkTimeNanos int64

	// WorktimeRecheckInterval is how many messages are written between
	// wall-clock budget checks.
	WorktimeRecheckInterval uint32

	// QueueCacheCapacity bounds how many retired generations are kept
	// around for reuse before being left for GC.
	QueueCacheCapacity int
}

// DefaultConfig returns the documented default policy: a 256-entry
// generation, a 500ms barrier ceiling, and a 100us flush budget rechecked
// every 64 writes.
func DefaultConfig() Config {
	d := queue.DefaultConfig()
	return Config{
		QueueSize:               d.QueueSize,
		MaxBarrierNanos:         d.MaxBarrierNanos,
		MaxWorkTimeNanos:        d.MaxWorkTimeNanos,
		WorktimeRecheckInterval: d.WorktimeRecheckInterval,
		QueueCacheCapacity:      d.QueueCacheCapacity,
	}
}

func (c Config) toInternal() queue.Config {
	return queue.Config{
		QueueSize:               c.QueueSize,
		MaxBarrierNanos:         c.MaxBarrierNanos,
		MaxWorkTimeNanos:        c.MaxWorkTimeNanos,
		WorktimeRecheckInterval: c.WorktimeRecheckInterval,
		QueueCacheCapacity:      c.QueueCacheCapacity,
	}
}
