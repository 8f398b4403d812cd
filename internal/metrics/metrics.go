// Package metrics exposes Prometheus instrumentation for the
// reconciliation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsProcessed counts transactions that completed the
	// reconciliation pipeline, labelled by outcome.
	TransactionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finpulse",
		Subsystem: "reconcile",
		Name:      "transactions_processed_total",
		Help:      "Transactions processed by the reconciliation pipeline.",
	}, []string{"outcome"})

	// FragmentsMatched counts fragments matched to obligation periods,
	// labelled by payment classification.
	FragmentsMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finpulse",
		Subsystem: "reconcile",
		Name:      "fragments_matched_total",
		Help:      "Fragments matched to obligation periods.",
	}, []string{"classification"})

	// PeriodsUpdated counts obligation periods whose aggregate status was
	// recomputed and persisted.
	PeriodsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "finpulse",
		Subsystem: "reconcile",
		Name:      "periods_updated_total",
		Help:      "Obligation periods with a recomputed aggregate persisted.",
	})

	// DataInconsistencies counts non-fatal data problems observed while
	// reconciling, such as overlapping periods of the same type.
	DataInconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "finpulse",
		Subsystem: "reconcile",
		Name:      "data_inconsistencies_total",
		Help:      "Non-fatal data inconsistencies detected during reconciliation.",
	})

	// BatchDuration observes end-to-end batch latency.
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "finpulse",
		Subsystem: "reconcile",
		Name:      "batch_duration_seconds",
		Help:      "Duration of reconciliation batches.",
		Buckets:   prometheus.DefBuckets,
	})
)
