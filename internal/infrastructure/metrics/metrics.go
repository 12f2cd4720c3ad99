package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	TransactionsProcessed *prometheus.CounterVec
	TransactionDuration   prometheus.Histogram
	TransactionAmount     *prometheus.HistogramVec
	LedgerErrors          *prometheus.CounterVec

	// Card metrics
	CardsCreated    prometheus.Counter
	CardTransitions *prometheus.CounterVec

	// Summary metrics
	SummaryRefreshes prometheus.Counter
	SummaryCache     *prometheus.CounterVec

	// Reconciliation metrics
	ReconciliationRuns          *prometheus.CounterVec
	ReconciliationDiscrepancies prometheus.Gauge

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxErrors    prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Redis metrics
	RedisErrors *prometheus.CounterVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers all metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		TransactionsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardledger_transactions_processed_total",
				Help: "Total number of transactions recorded by type and status",
			},
			[]string{"type", "status"},
		),
		TransactionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardledger_transaction_duration_seconds",
			Help:    "Duration of transaction processing",
			Buckets: prometheus.DefBuckets,
		}),
		TransactionAmount: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardledger_transaction_amount",
				Help:    "Completed transaction amounts",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"type"},
		),
		LedgerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardledger_errors_total",
				Help: "Total number of failed ledger operations by error kind",
			},
			[]string{"operation", "kind"},
		),

		// Card metrics
		CardsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "cardledger_cards_created_total",
			Help: "Total number of cards issued",
		}),
		CardTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardledger_card_transitions_total",
				Help: "Total card status transitions by target status",
			},
			[]string{"status"},
		),

		// Summary metrics
		SummaryRefreshes: f.NewCounter(prometheus.CounterOpts{
			Name: "cardledger_summary_refreshes_total",
			Help: "Total number of account summary recomputations",
		}),
		SummaryCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardledger_summary_cache_total",
				Help: "Summary cache lookups by result",
			},
			[]string{"result"},
		),

		// Reconciliation metrics
		ReconciliationRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardledger_reconciliation_runs_total",
				Help: "Total reconciliation runs by result",
			},
			[]string{"result"},
		),
		ReconciliationDiscrepancies: f.NewGauge(prometheus.GaugeOpts{
			Name: "cardledger_reconciliation_discrepancies",
			Help: "Discrepancies found by the last reconciliation run",
		}),

		// Outbox metrics
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "cardledger_outbox_published_total",
			Help: "Total outbox events published",
		}),
		OutboxErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "cardledger_outbox_errors_total",
			Help: "Total outbox publish failures",
		}),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Redis metrics
		RedisErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardledger_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
