// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devflow_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// TransactionLatency records how long service transactions take by operation.
	TransactionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devflow_transaction_latency_seconds",
		Help:    "Service transaction latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	// VotesCast counts vote casts by target kind and resulting state.
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devflow_votes_cast_total",
		Help: "Total number of votes cast by target kind and resulting state",
	}, []string{"target_type", "state"})

	// CascadeDeletedRows counts rows removed by question cascades per entity.
	CascadeDeletedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devflow_cascade_deleted_rows_total",
		Help: "Rows removed by question delete cascades by entity",
	}, []string{"entity"})

	// TagsResolved counts tag resolutions by outcome (created or linked).
	TagsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devflow_tags_resolved_total",
		Help: "Tag resolutions by outcome",
	}, []string{"outcome"})

	// InteractionsRecorded counts deferred interaction writes by result.
	InteractionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devflow_interactions_recorded_total",
		Help: "Deferred interaction writes by result",
	}, []string{"result"})

	// InteractionsDropped counts interactions dropped because the queue was full or closed.
	InteractionsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devflow_interactions_dropped_total",
		Help: "Interactions dropped before reaching the recorder",
	}, []string{"reason"})

	// InteractionQueueDepth is the number of interactions waiting to be written.
	InteractionQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "devflow_interaction_queue_depth",
		Help: "Interactions waiting to be written",
	})
)

// ObserveTransaction returns a function that records the transaction latency
// for operation when called with the final error (e.g. defer).
func ObserveTransaction(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		outcome := "commit"
		if err != nil {
			outcome = "abort"
		}
		TransactionLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	}
}
