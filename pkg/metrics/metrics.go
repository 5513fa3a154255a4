// Package metrics holds the Prometheus collectors the resolver records
// against as it moves tasks through the queue, downloaders, and parsers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eureka_offchain_tasks_enqueued_total",
		Help: "Total number of tasks accepted by add_task.",
	})

	TasksFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eureka_offchain_tasks_finished_total",
		Help: "Total number of tasks that reached a terminal state, by state name.",
	}, []string{"state"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eureka_offchain_queue_depth",
		Help: "Current number of tasks waiting in the delay queue.",
	})

	DownloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "eureka_offchain_download_duration_seconds",
		Help: "LinkResolver.Download call latency, by scheme.",
	}, []string{"scheme"})

	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "eureka_offchain_parse_duration_seconds",
		Help: "ContentParser.Parse call latency, by manifest.",
	}, []string{"manifest"})

	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eureka_offchain_retries_total",
		Help: "Total number of task retry attempts, by scheme.",
	}, []string{"scheme"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eureka_offchain_circuit_breaker_state",
		Help: "Per-scheme circuit breaker state: 0=closed, 1=half-open, 2=open.",
	}, []string{"scheme"})
)

func RecordTaskEnqueued() {
	TasksEnqueuedTotal.Inc()
}

func RecordTaskFinished(state string) {
	TasksFinishedTotal.WithLabelValues(state).Inc()
}

func SetQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

func RecordDownload(scheme string, duration time.Duration) {
	DownloadDuration.WithLabelValues(scheme).Observe(duration.Seconds())
}

func RecordParse(manifest string, duration time.Duration) {
	ParseDuration.WithLabelValues(manifest).Observe(duration.Seconds())
}

func RecordRetry(scheme string) {
	RetriesTotal.WithLabelValues(scheme).Inc()
}

func SetCircuitBreakerState(scheme string, state float64) {
	CircuitBreakerState.WithLabelValues(scheme).Set(state)
}

// Timer measures an operation's duration for whichever Record* call the
// caller follows up with.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) RecordDownload(scheme string) {
	RecordDownload(scheme, t.Elapsed())
}

func (t *Timer) RecordParse(manifest string) {
	RecordParse(manifest, t.Elapsed())
}
