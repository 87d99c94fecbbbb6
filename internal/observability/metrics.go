// Package observability provides Prometheus metrics for monitoring. These
// are the exported, process-local view; the counters the platform persists
// across restarts live in the state document itself.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the platform.
type Metrics struct {
	// Intent pipeline metrics
	IntentsReceived    prometheus.Counter
	IdempotencyReplays prometheus.Counter
	IntentsExecuted    *prometheus.CounterVec // by mode
	IntentsRejected    *prometheus.CounterVec // by reason
	IntentsFailed      *prometheus.CounterVec // by reason
	PendingIntents     prometheus.Gauge

	// Execution metrics
	ExecutionLatency prometheus.Histogram
	VenueCallLatency *prometheus.HistogramVec // by call
	FeesCollectedUsd prometheus.Counter

	// Worker metrics
	WorkerRunsTotal    prometheus.Counter
	WorkerRunDuration  prometheus.Histogram
	ArchivedExecutions prometheus.Counter

	// Store metrics
	PersistErrors prometheus.Counter
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "agent_arena"
	}

	return &Metrics{
		IntentsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intents",
			Name:      "received_total",
			Help:      "Total number of trade intents accepted by the intent service",
		}),
		IdempotencyReplays: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intents",
			Name:      "idempotency_replays_total",
			Help:      "Total number of submissions answered from the idempotency ledger",
		}),
		IntentsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intents",
			Name:      "executed_total",
			Help:      "Total number of intents driven to executed, by mode",
		}, []string{"mode"}),
		IntentsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intents",
			Name:      "rejected_total",
			Help:      "Total number of intents rejected at admission, by reason",
		}, []string{"reason"}),
		IntentsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intents",
			Name:      "failed_total",
			Help:      "Total number of intents that failed during execution, by reason",
		}, []string{"reason"}),
		PendingIntents: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "intents",
			Name:      "pending",
			Help:      "Current number of pending intents",
		}),

		ExecutionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "process_intent_seconds",
			Help:      "Time to drive one intent to a terminal state",
			Buckets:   prometheus.DefBuckets,
		}),
		VenueCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "venue_call_seconds",
			Help:      "Latency of external venue calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		FeesCollectedUsd: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "fees_collected_usd_total",
			Help:      "Total execution fees credited to the treasury",
		}),

		WorkerRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "runs_total",
			Help:      "Total number of worker scheduling passes",
		}),
		WorkerRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "run_seconds",
			Help:      "Duration of one worker scheduling pass",
			Buckets:   prometheus.DefBuckets,
		}),
		ArchivedExecutions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "archived_executions_total",
			Help:      "Total execution records flushed to the analytics archive",
		}),

		PersistErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persist_errors_total",
			Help:      "Total state persistence failures",
		}),
	}
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
