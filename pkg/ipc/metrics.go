package ipc

import "github.com/prometheus/client_golang/prometheus"

// Process-wide operation counters, registered on the default registry so a
// host process exposing /metrics picks them up without extra wiring.
var (
	metricSegmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "posix_ipc",
		Subsystem: "segment",
		Name:      "created_total",
		Help:      "Shared memory segments created by this process.",
	})
	metricSegmentsAttached = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "posix_ipc",
		Subsystem: "segment",
		Name:      "attached_total",
		Help:      "Attachments to segments created elsewhere.",
	})
	metricSegmentsDisposed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "posix_ipc",
		Subsystem: "segment",
		Name:      "disposed_total",
		Help:      "Segment handles disposed.",
	})
	metricBytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "posix_ipc",
		Subsystem: "segment",
		Name:      "written_bytes_total",
		Help:      "Payload bytes written into shared memory.",
	})
	metricBytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "posix_ipc",
		Subsystem: "segment",
		Name:      "read_bytes_total",
		Help:      "Payload bytes read out of shared memory.",
	})
	metricSemaphoresCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "posix_ipc",
		Subsystem: "semaphore",
		Name:      "created_total",
		Help:      "Semaphores created (not opened) by this process.",
	})
	metricSemaphoresDestroyed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "posix_ipc",
		Subsystem: "semaphore",
		Name:      "destroyed_total",
		Help:      "Semaphores destroyed by this process.",
	})
	metricSemaphoreWaits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "posix_ipc",
		Subsystem: "semaphore",
		Name:      "waits_total",
		Help:      "Completed semaphore waits.",
	})
	metricSemaphoreSignals = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "posix_ipc",
		Subsystem: "semaphore",
		Name:      "signals_total",
		Help:      "Completed semaphore signals.",
	})
)

func init() {
	prometheus.MustRegister(
		metricSegmentsCreated,
		metricSegmentsAttached,
		metricSegmentsDisposed,
		metricBytesWritten,
		metricBytesRead,
		metricSemaphoresCreated,
		metricSemaphoresDestroyed,
		metricSemaphoreWaits,
		metricSemaphoreSignals,
	)
}
