package frame

import "time"

// Default configuration values for queue capacity and event-loop
// fairness.
const (
	// DefaultQueueSize is the maximum number of non-barrier entries per
	// generation. Generation capacity is DefaultQueueSize+1, the extra
	// slot reserved for a trailing barrier.
	DefaultQueueSize = 256

	// DefaultMaxBarrierNanos upper-bounds the time between outgoing
	// barriers when the wire is otherwise idle of barrier traffic.
	DefaultMaxBarrierNanos = int64(500 * time.Millisecond)

	// DefaultMaxWorkTimeMicros bounds a single flush iteration.
	DefaultMaxWorkTimeMicros = 100

	// DefaultWorktimeRecheckInterval is how many messages are written
	// between wall-clock budget checks.
	DefaultWorktimeRecheckInterval = 64

	// DefaultQueueCacheCapacity is the number of retired generations
	// kept around for reuse before they are dropped for GC.
	DefaultQueueCacheCapacity = 4
)
