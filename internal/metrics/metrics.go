// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LedgerChanges counts merged changes by entity type and merge outcome
	LedgerChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimpsync_ledger_changes_total",
			Help: "Changes recorded in the synchronization ledger",
		},
		[]string{"entity_type", "outcome"},
	)

	// Passes counts synchronization passes by trigger and result
	Passes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimpsync_passes_total",
			Help: "Synchronization passes",
		},
		[]string{"trigger", "result"},
	)

	// OperationsDispatched counts operations submitted in batches
	OperationsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chimpsync_operations_dispatched_total",
			Help: "Operations submitted to the remote API",
		},
	)

	// BatchesSubmitted counts submitted batches
	BatchesSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chimpsync_batches_submitted_total",
			Help: "Batches submitted to the remote API",
		},
	)

	// OperationErrors counts failed operations reported in batch results
	OperationErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chimpsync_operation_errors_total",
			Help: "Operations reported as failed in batch results",
		},
	)

	// Webhooks counts inbound webhook calls by kind and outcome
	Webhooks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimpsync_webhooks_total",
			Help: "Inbound webhook notifications",
		},
		[]string{"kind", "outcome"},
	)

	// Events counts consumed change events by outcome
	Events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimpsync_events_total",
			Help: "Entity change events consumed from the event feed",
		},
		[]string{"outcome"},
	)

	// RemoteRequests counts remote API calls by method and status class
	RemoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimpsync_remote_requests_total",
			Help: "Requests sent to the remote API",
		},
		[]string{"method", "status"},
	)

	// PassDuration observes how long building and dispatching a pass takes
	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chimpsync_pass_duration_seconds",
			Help:    "Duration of synchronization passes up to dispatch",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)

// Registry holds every collector of the service
var Registry = newRegistry()

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LedgerChanges,
		Passes,
		OperationsDispatched,
		BatchesSubmitted,
		OperationErrors,
		Webhooks,
		Events,
		RemoteRequests,
		PassDuration,
	)
	return reg
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
