// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the daemon and agents.
type Metrics struct {
	// Scan pipeline metrics
	ScansStarted     prometheus.Counter
	ScansDeduped     prometheus.Counter
	SignalsSubmitted *prometheus.CounterVec
	SignalsRejected  prometheus.Counter
	AlertsTriggered  *prometheus.CounterVec

	// Relay metrics
	RelayMessages     *prometheus.CounterVec
	RelayConnections  prometheus.Gauge
	ProxyFetchLatency prometheus.Histogram
	ProxyFetchBlocked prometheus.Counter

	// Guardian metrics
	GuardianPolls        *prometheus.CounterVec
	GuardianAlertsMerged prometheus.Counter
	GuardianUnread       prometheus.Gauge

	// Notification metrics
	NotificationsShown *prometheus.CounterVec

	// Service call metrics
	APICallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
	LastGuardianPoll   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "swarmlink"
	}

	return &Metrics{
		// Scan pipeline metrics
		ScansStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "scans_started_total",
			Help:      "Total number of token scans started",
		}),
		ScansDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "scans_deduped_total",
			Help:      "Total number of scans skipped by session dedup",
		}),
		SignalsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "signals_submitted_total",
			Help:      "Total number of signals submitted by type",
		}, []string{"type"}),
		SignalsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "signals_rejected_total",
			Help:      "Total number of signals refused by the service",
		}),
		AlertsTriggered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "alerts_triggered_total",
			Help:      "Total number of service-triggered alerts by type",
		}, []string{"alert_type"}),

		// Relay metrics
		RelayMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Total number of relay messages by type and direction",
		}, []string{"type", "direction"}),
		RelayConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connections",
			Help:      "Number of connected scan agents",
		}),
		ProxyFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "proxy_fetch_latency_seconds",
			Help:      "Proxied API fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ProxyFetchBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "proxy_fetch_blocked_total",
			Help:      "Total number of proxied fetches refused by the allow list",
		}),

		// Guardian metrics
		GuardianPolls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guardian",
			Name:      "polls_total",
			Help:      "Total number of guardian polls by status",
		}, []string{"status"}),
		GuardianAlertsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guardian",
			Name:      "alerts_merged_total",
			Help:      "Total number of guardian alerts merged into history",
		}),
		GuardianUnread: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guardian",
			Name:      "unread",
			Help:      "Current unread guardian alert count",
		}),

		// Notification metrics
		NotificationsShown: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_shown_total",
			Help:      "Total number of notifications shown by kind",
		}, []string{"kind"}),

		// Service call metrics
		APICallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "call_latency_seconds",
			Help:      "Remote service call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		// Database metrics
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

		// Health metrics
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last successful scan",
		}),
		LastGuardianPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_guardian_poll_timestamp",
			Help:      "Unix timestamp of last successful guardian poll",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScanStarted increments the scans started counter.
func RecordScanStarted() {
	DefaultMetrics.ScansStarted.Inc()
}

// RecordScanDeduped increments the dedup counter.
func RecordScanDeduped() {
	DefaultMetrics.ScansDeduped.Inc()
}

// RecordSignalSubmitted records one signal submission.
func RecordSignalSubmitted(signalType string) {
	DefaultMetrics.SignalsSubmitted.WithLabelValues(signalType).Inc()
}

// RecordSignalRejected increments the rejected signal counter.
func RecordSignalRejected() {
	DefaultMetrics.SignalsRejected.Inc()
}

// RecordAlertTriggered records a service-triggered alert.
func RecordAlertTriggered(alertType string) {
	DefaultMetrics.AlertsTriggered.WithLabelValues(alertType).Inc()
}

// RecordRelayMessage records one relay message.
func RecordRelayMessage(msgType, direction string) {
	DefaultMetrics.RelayMessages.WithLabelValues(msgType, direction).Inc()
}

// RecordGuardianPoll records a poll outcome.
func RecordGuardianPoll(status string, merged int) {
	DefaultMetrics.GuardianPolls.WithLabelValues(status).Inc()
	if merged > 0 {
		DefaultMetrics.GuardianAlertsMerged.Add(float64(merged))
	}
}

// RecordNotification records one shown notification.
func RecordNotification(kind string) {
	DefaultMetrics.NotificationsShown.WithLabelValues(kind).Inc()
}

// RecordAPICall records remote service call latency.
func RecordAPICall(endpoint string, seconds float64) {
	DefaultMetrics.APICallLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
