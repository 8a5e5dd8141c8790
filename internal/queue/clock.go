package queue

import "time"

// Clock supplies monotonic nanosecond timestamps to a Manager. Tests
// substitute a manually-advanced implementation to exercise the
// time-based barrier path deterministically.
type Clock interface {
	NowNanos() int64
}

// monotonicClock measures elapsed time.Since an arbitrary start point
// rather than calling time.Now().UnixNano() directly, so a wall-clock
// adjustment (NTP step, leap second) never perturbs barrier scheduling.
type monotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns the production Clock.
func NewMonotonicClock() Clock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) NowNanos() int64 { return int64(time.Since(c.start)) }
