// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	OperationsTotal   *prometheus.CounterVec
	OperationLatency  *prometheus.HistogramVec
	SubmissionsTotal  *prometheus.CounterVec
	RewardsPaid       *prometheus.CounterVec
	AggregatedPrice   *prometheus.GaugeVec
	TotalDeposited    *prometheus.GaugeVec
	BlacklistChanges  *prometheus.CounterVec
	OraclesRegistered prometheus.Gauge

	// API metrics
	HTTPRequests      *prometheus.CounterVec
	HTTPLatency       *prometheus.HistogramVec
	RateLimited       prometheus.Counter
	WSClients         prometheus.Gauge
	WSMessagesDropped prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastCommit    prometheus.Gauge
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "weighted_oracle"
	}

	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome",
		}, []string{"op", "status"}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_latency_seconds",
			Help:      "Engine operation latency in seconds, including token transfers",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "submissions_total",
			Help:      "Accepted submissions by oracle and finality",
		}, []string{"oracle", "final"}),
		RewardsPaid: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rewards_paid_total",
			Help:      "Native currency paid out as submission rewards",
		}, []string{"oracle"}),
		AggregatedPrice: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "aggregated_price",
			Help:      "Current aggregated value per oracle",
		}, []string{"oracle"}),
		TotalDeposited: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "total_deposited_tokens",
			Help:      "Weight tokens deposited per oracle",
		}, []string{"oracle"}),
		BlacklistChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "blacklist_changes_total",
			Help:      "Blacklist status flips by direction",
		}, []string{"oracle", "blacklisted"}),
		OraclesRegistered: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "oracles",
			Help:      "Number of registered oracles",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Write requests rejected by the rate limiter",
		}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients",
		}),
		WSMessagesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_messages_dropped_total",
			Help:      "Events dropped because a client send buffer was full",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastCommit: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_commit_timestamp",
			Help:      "Engine time of the last committed operation",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperation records the outcome and latency of an engine operation.
func RecordOperation(op string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "rejected"
	}
	DefaultMetrics.OperationsTotal.WithLabelValues(op, status).Inc()
	DefaultMetrics.OperationLatency.WithLabelValues(op).Observe(seconds)
}

// RecordSubmission records an accepted submission.
func RecordSubmission(oracle string, final bool, aggregated, reward float64) {
	f := "false"
	if final {
		f = "true"
	}
	DefaultMetrics.SubmissionsTotal.WithLabelValues(oracle, f).Inc()
	DefaultMetrics.AggregatedPrice.WithLabelValues(oracle).Set(aggregated)
	if reward > 0 {
		DefaultMetrics.RewardsPaid.WithLabelValues(oracle).Add(reward)
	}
}

// UpdateTotalDeposited sets the deposited-tokens gauge of an oracle.
func UpdateTotalDeposited(oracle string, total float64) {
	DefaultMetrics.TotalDeposited.WithLabelValues(oracle).Set(total)
}

// RecordBlacklistChange records a blacklist flip.
func RecordBlacklistChange(oracle string, blacklisted bool) {
	b := "false"
	if blacklisted {
		b = "true"
	}
	DefaultMetrics.BlacklistChanges.WithLabelValues(oracle, b).Inc()
}

// SetOracleCount sets the registered oracles gauge.
func SetOracleCount(n int) {
	DefaultMetrics.OraclesRegistered.Set(float64(n))
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route string, code int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	DefaultMetrics.HTTPLatency.WithLabelValues(route).Observe(seconds)
}

// RecordRateLimited increments the rate limited counter.
func RecordRateLimited() {
	DefaultMetrics.RateLimited.Inc()
}

// SetWSClients sets the connected WebSocket clients gauge.
func SetWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}

// RecordWSDrop increments the dropped WebSocket messages counter.
func RecordWSDrop() {
	DefaultMetrics.WSMessagesDropped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordCommit updates the last commit gauge.
func RecordCommit(timestamp uint64) {
	DefaultMetrics.LastCommit.Set(float64(timestamp))
}
