package queue

import "time"

// Observer receives point-in-time measurements from a Manager. The
// top-level flowqueue package aliases this type so its Prometheus-backed
// implementation can be handed to queue.NewManager without this package
// importing anything outside internal/.
type Observer interface {
	// ObserveFlush is called once per flush() invocation, even when it
	// wrote zero frames.
	ObserveFlush(framesWritten int, duration time.Duration, budgetExhausted bool)

	// ObserveBarrierScheduled is called whenever a barrier entry is
	// reserved and committed, trigger being "count" or "time".
	ObserveBarrierScheduled(trigger string)

	// ObserveReserveFailure is called when Reserve fails because the
	// current generation is full.
	ObserveReserveFailure()

	// ObserveProtocolMismatch is called when OnMessage receives a
	// response whose XID matches no outstanding entry.
	ObserveProtocolMismatch()

	// ObserveDisconnect is called once per channelInactive, reporting
	// how many outstanding completions were failed.
	ObserveDisconnect(failed uint32)
}

type noopObserver struct{}

func (noopObserver) ObserveFlush(int, time.Duration, bool) {}
func (noopObserver) ObserveBarrierScheduled(string)        {}
func (noopObserver) ObserveReserveFailure()                {}
func (noopObserver) ObserveProtocolMismatch()              {}
func (noopObserver) ObserveDisconnect(uint32)              {}

// NoOpObserver is a zero-overhead Observer for callers that don't wire
// metrics.
var NoOpObserver Observer = noopObserver{}
