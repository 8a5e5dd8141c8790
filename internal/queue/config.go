package queue

import "github.com/openflow-go/flowqueue/internal/frame"

// Config is a manager's immutable queue policy: generation sizing,
// barrier timing, and flush work-budgeting.
type Config struct {
	// QueueSize is the maximum number of non-barrier entries per
	// generation. Generation capacity is QueueSize+1.
	QueueSize uint32

	// MaxBarrierNanos upper-bounds the time between outgoing barriers.
	MaxBarrierNanos int64

	// MaxWorkTimeNanos bounds a single flush iteration's wall-clock
	// budget.
	MaxWorkTimeNanos int64

	// WorktimeRecheckInterval is how many messages are written between
	// wall-clock budget checks.
	WorktimeRecheckInterval uint32

	// QueueCacheCapacity bounds the retired-generation reuse cache.
	QueueCacheCapacity int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:               frame.DefaultQueueSize,
		MaxBarrierNanos:         frame.DefaultMaxBarrierNanos,
		MaxWorkTimeNanos:        frame.DefaultMaxWorkTimeMicros * 1000,
		WorktimeRecheckInterval: frame.DefaultWorktimeRecheckInterval,
		QueueCacheCapacity:      frame.DefaultQueueCacheCapacity,
	}
}

// withDefaults fills any zero-valued field with DefaultConfig's value.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QueueSize == 0 {
		c.QueueSize = d.QueueSize
	}
	if c.MaxBarrierNanos == 0 {
		c.MaxBarrierNanos = d.MaxBarrierNanos
	}
	if c.MaxWorkTimeNanos == 0 {
		c.MaxWorkTimeNanos = d.MaxWorkTimeNanos
	}
	if c.WorktimeRecheckInterval == 0 {
		c.WorktimeRecheckInterval = d.WorktimeRecheckInterval
	}
	if c.QueueCacheCapacity == 0 {
		c.QueueCacheCapacity = d.QueueCacheCapacity
	}
	return c
}

// capacity returns the per-generation slot count (QueueSize + 1).
func (c Config) capacity() uint32 { return c.QueueSize + 1 }
