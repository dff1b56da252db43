package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_events_published_total",
		Help: "Total number of events published on the bus",
	}, []string{"event"})

	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_event_handler_failures_total",
		Help: "Total number of subscriber handler failures during dispatch",
	}, []string{"event"})

	TransactionsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_transactions_settled_total",
		Help: "Total number of successfully settled transactions",
	})

	SettlementsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_settlements_failed_total",
		Help: "Total number of failed settlement attempts",
	}, []string{"reason"})

	StoreWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_store_write_failures_total",
		Help: "Total number of persistent store write failures",
	}, []string{"collection"})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_payment_processing_latency_seconds",
		Help:    "Latency of payment processing during settlement",
		Buckets: prometheus.DefBuckets,
	})
)
