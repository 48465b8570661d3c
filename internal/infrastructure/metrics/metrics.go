package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Entry metrics
	EntriesCreated  prometheus.Counter
	EntriesPosted   prometheus.Counter
	EntriesReversed prometheus.Counter

	// Reconciliation metrics
	ReconciliationsStarted prometheus.Counter
	PartialsCreated        prometheus.Counter
	FullReconciliations    prometheus.Counter
	ReconciliationsRemoved prometheus.Counter
	ReconciliationDuration prometheus.Histogram
	GeneratedEntries       *prometheus.CounterVec

	// Payment metrics
	PaymentsRegistered *prometheus.CounterVec
	PaymentAmount      prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBConnections prometheus.Gauge

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
	EventsPending   prometheus.Gauge
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		EntriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goreconcile_entries_created_total",
			Help: "Total number of journal entries created",
		}),
		EntriesPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goreconcile_entries_posted_total",
			Help: "Total number of journal entries posted",
		}),
		EntriesReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goreconcile_entries_reversed_total",
			Help: "Total number of journal entries reversed",
		}),
		ReconciliationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goreconcile_reconciliations_total",
			Help: "Total number of reconciliation passes",
		}),
		PartialsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goreconcile_partials_created_total",
			Help: "Total number of partial reconciliations created",
		}),
		FullReconciliations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goreconcile_full_reconciliations_total",
			Help: "Total number of full reconciliations closed",
		}),
		ReconciliationsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goreconcile_reconciliations_removed_total",
			Help: "Total number of reconciliations undone",
		}),
		ReconciliationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goreconcile_reconciliation_duration_seconds",
			Help:    "Duration of reconciliation passes",
			Buckets: prometheus.DefBuckets,
		}),
		GeneratedEntries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goreconcile_generated_entries_total",
				Help: "Total number of generated entries by kind",
			},
			[]string{"kind"},
		),
		PaymentsRegistered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goreconcile_payments_registered_total",
				Help: "Total number of payments registered by direction",
			},
			[]string{"payment_type"},
		),
		PaymentAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goreconcile_payment_amount",
			Help:    "Payment amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goreconcile_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goreconcile_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "goreconcile_db_connections",
			Help: "Current number of database connections",
		}),

		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goreconcile_events_published_total",
				Help: "Total outbox events published by type",
			},
			[]string{"event_type"},
		),
		EventsPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "goreconcile_events_pending",
			Help: "Current number of unpublished outbox events",
		}),
	}
}
