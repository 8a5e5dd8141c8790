package flowqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openflow-go/flowqueue/internal/queue"
)

// Observer receives point-in-time measurements from a Manager's queue
// core: flush outcomes, barrier triggers, and failure counts. Callers
// that don't need metrics can pass NoOpObserver or leave
// ManagerParams.Observer unset.
type Observer = queue.Observer

// NoOpObserver is a zero-overhead Observer.
var NoOpObserver = queue.NoOpObserver

// PrometheusObserver implements Observer by recording every measurement
// onto a set of Prometheus collectors, which NewPrometheusObserver
// registers with the prometheus.Registerer it is given.
type PrometheusObserver struct {
	framesWritten   prometheus.Counter
	flushDuration   prometheus.Histogram
	budgetExhausted prometheus.Counter
	barriersByCause *prometheus.CounterVec
	reserveFailures prometheus.Counter
	protocolMismatches prometheus.Counter
	disconnects     prometheus.Counter
	entriesFailed   prometheus.Counter
}

// NewPrometheusObserver builds a PrometheusObserver and registers its
// collectors with reg. namespace/subsystem prefix every metric name, e.g.
// "openflow_channel_frames_written_total".
func NewPrometheusObserver(reg prometheus.Registerer, namespace, subsystem string) *PrometheusObserver {
	o := &PrometheusObserver{
		framesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_written_total",
			Help:      "Total frames written to the wire across all flush iterations.",
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "flush_duration_seconds",
			Help:      "Wall-clock duration of a single flush iteration.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		budgetExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "flush_budget_exhausted_total",
			Help:      "Flush iterations that stopped early due to the work-time budget.",
		}),
		barriersByCause: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "barriers_scheduled_total",
			Help:      "Barrier entries scheduled, labeled by trigger (count or time).",
		}, []string{"trigger"}),
		reserveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reserve_failures_total",
			Help:      "Reserve calls that failed because the current generation was full.",
		}),
		protocolMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "protocol_mismatches_total",
			Help:      "Inbound responses whose XID matched no outstanding entry.",
		}),
		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "disconnects_total",
			Help:      "Channel disconnect events observed.",
		}),
		entriesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "entries_failed_total",
			Help:      "Outstanding entries failed across every disconnect.",
		}),
	}

	reg.MustRegister(
		o.framesWritten, o.flushDuration, o.budgetExhausted, o.barriersByCause,
		o.reserveFailures, o.protocolMismatches, o.disconnects, o.entriesFailed,
	)
	return o
}

func (o *PrometheusObserver) ObserveFlush(framesWritten int, duration time.Duration, budgetExhausted bool) {
	o.framesWritten.Add(float64(framesWritten))
	o.flushDuration.Observe(duration.Seconds())
	if budgetExhausted {
		o.budgetExhausted.Inc()
	}
}

func (o *PrometheusObserver) ObserveBarrierScheduled(trigger string) {
	o.barriersByCause.WithLabelValues(trigger).Inc()
}

func (o *PrometheusObserver) ObserveReserveFailure() { o.reserveFailures.Inc() }

func (o *PrometheusObserver) ObserveProtocolMismatch() { o.protocolMismatches.Inc() }

func (o *PrometheusObserver) ObserveDisconnect(failed uint32) {
	o.disconnects.Inc()
	o.entriesFailed.Add(float64(failed))
}

var _ Observer = (*PrometheusObserver)(nil)
