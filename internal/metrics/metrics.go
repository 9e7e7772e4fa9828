package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Offers
	OffersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offers_created_total",
			Help: "Offers posted",
		},
	)
	OfferTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offer_transitions_total",
			Help: "Successful offer status transitions",
		},
		[]string{"from", "to"},
	)
	OfferConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offer_conflicts_total",
			Help: "Conditional offer writes that lost a race",
		},
		[]string{"op"}, // accept|cancel|complete
	)

	// Settlement
	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Ledger rows written, by payment status",
		},
		[]string{"payment_status"},
	)
	ReconciledOffers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciled_offers_total",
			Help: "Offers completed by the reconciler after a settlement left them accepted",
		},
	)

	// Notifications
	NotificationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Notifications that could not be handed to the gateway or delivered",
		},
		[]string{"event"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
	WorkerDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_dropped_total",
			Help: "Jobs rejected because the worker queue was full or stopped",
		},
	)
)

var Handler = promhttp.Handler

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestLatency,
			OffersCreated,
			OfferTransitions,
			OfferConflicts,
			Settlements,
			ReconciledOffers,
			NotificationsFailed,
			WorkerQueueDepth,
			WorkerDropped,
		)
	})
}
