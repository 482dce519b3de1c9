// Package metrics provides Prometheus instrumentation for the Steady platform.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steady",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "steady",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// EventsIngestedTotal counts events appended to the event log by category.
	EventsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steady",
			Name:      "events_ingested_total",
			Help:      "Total events appended to the event log by category.",
		},
		[]string{"category"},
	)

	// ScoreComputationsTotal counts per-user score computations by result.
	ScoreComputationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steady",
			Name:      "score_computations_total",
			Help:      "Total per-user score computations by result.",
		},
		[]string{"result"},
	)

	// ScoringBatchDuration observes the duration of full batch scoring runs.
	ScoringBatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "steady",
		Name:      "scoring_batch_duration_seconds",
		Help:      "Duration of full batch scoring runs in seconds.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	// MissionsAssignedTotal counts mission assignments by mission type.
	MissionsAssignedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steady",
			Name:      "missions_assigned_total",
			Help:      "Total user mission assignments by mission type.",
		},
		[]string{"type"},
	)

	// MissionsCompletedTotal counts completed missions.
	MissionsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steady",
		Name:      "missions_completed_total",
		Help:      "Total missions completed by users.",
	})

	// MissionsExpiredTotal counts missions transitioned to expired by the sweep.
	MissionsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steady",
		Name:      "missions_expired_total",
		Help:      "Total mission assignments expired by the sweep.",
	})

	// WalletTransactionsTotal counts wallet ledger appends by type.
	WalletTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steady",
			Name:      "wallet_transactions_total",
			Help:      "Total wallet transactions appended by type.",
		},
		[]string{"type"},
	)

	// RedemptionsTotal counts reward redemption attempts by outcome.
	RedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steady",
			Name:      "redemptions_total",
			Help:      "Total reward redemption attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// RiskFlagsTotal counts accepted risk flags by code.
	RiskFlagsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steady",
			Name:      "risk_flags_total",
			Help:      "Total accepted risk flags by flag code.",
		},
		[]string{"code"},
	)

	// BatchUserFailuresTotal counts per-user failures inside batch jobs.
	BatchUserFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steady",
			Name:      "batch_user_failures_total",
			Help:      "Per-user failures inside batch jobs, by job name.",
		},
		[]string{"job"},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "steady",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steady", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steady", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steady", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steady", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EventsIngestedTotal,
		ScoreComputationsTotal,
		ScoringBatchDuration,
		MissionsAssignedTotal,
		MissionsCompletedTotal,
		MissionsExpiredTotal,
		WalletTransactionsTotal,
		RedemptionsTotal,
		RiskFlagsTotal,
		BatchUserFailuresTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for the /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
