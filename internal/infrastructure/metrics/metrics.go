package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Entry metrics
	EntriesDrafted prometheus.Counter
	EntriesPosted  prometheus.Counter
	EntriesVoided  prometheus.Counter
	PostDuration   prometheus.Histogram
	PostRetries    prometheus.Counter
	PostContention prometheus.Counter

	// Verification metrics
	VerificationsRun   *prometheus.CounterVec
	VerifyDuration     prometheus.Histogram
	DiscrepanciesFound *prometheus.CounterVec
	VerifyCacheHits    prometheus.Counter

	// Account metrics
	AccountsCreated   prometheus.Counter
	AccountOperations *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections prometheus.Gauge
	DBErrors      *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Audit metrics
	AuditRecordsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Entry metrics
		EntriesDrafted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainledger_entries_drafted_total",
			Help: "Total number of draft journal entries created",
		}),
		EntriesPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainledger_entries_posted_total",
			Help: "Total number of journal entries posted to the chain",
		}),
		EntriesVoided: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainledger_entries_voided_total",
			Help: "Total number of journal entries voided",
		}),
		PostDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainledger_post_duration_seconds",
			Help:    "Duration of post operations including retries",
			Buckets: prometheus.DefBuckets,
		}),
		PostRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainledger_post_retries_total",
			Help: "Total number of chain position retries during posting",
		}),
		PostContention: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainledger_post_contention_total",
			Help: "Total number of posts abandoned after exhausting retries",
		}),

		// Verification metrics
		VerificationsRun: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_verifications_total",
				Help: "Total chain verification runs by outcome",
			},
			[]string{"outcome"},
		),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainledger_verify_duration_seconds",
			Help:    "Duration of full chain verification",
			Buckets: prometheus.DefBuckets,
		}),
		DiscrepanciesFound: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_discrepancies_total",
				Help: "Total discrepancies found by kind",
			},
			[]string{"kind"},
		),
		VerifyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainledger_verify_cache_hits_total",
			Help: "Total chain verifications served from cache",
		}),

		// Account metrics
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		AccountOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_account_operations_total",
				Help: "Total account operations by type",
			},
			[]string{"operation"},
		),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_db_queries_total",
				Help: "Total database queries",
			},
			[]string{"operation", "table"},
		),
		DBDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainledger_db_query_duration_seconds",
				Help:    "Database query duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chainledger_db_connections",
			Help: "Current number of database connections",
		}),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),

		// Redis metrics
		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_auth_attempts_total",
				Help: "Total authentication attempts",
			},
			[]string{"status"},
		),
		AuthFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		// Audit metrics
		AuditRecordsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainledger_audit_records_total",
				Help: "Total audit records created",
			},
			[]string{"action"},
		),
	}
}
