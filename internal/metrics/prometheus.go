package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bifrost_requests_total",
		Help: "Total number of proxied requests recorded",
	}, []string{"status"})

	PaymentRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bifrost_payment_requests_total",
		Help: "Total number of payment requests detected",
	})

	ApprovalDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bifrost_approval_decisions_total",
		Help: "Total payment approval decisions by verdict",
	}, []string{"decision"})

	PendingApprovals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bifrost_pending_approvals",
		Help: "Current number of undecided payment flows",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bifrost_active_sessions",
		Help: "Current number of Active proxy sessions",
	})

	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bifrost_sse_clients",
		Help: "Current number of SSE clients connected",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bifrost_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	IngestedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bifrost_ingested_entries_total",
		Help: "Total payment log entries ingested from the interception engine",
	})
)

func CountRequest(statusCode int, paymentRelated bool) {
	RequestsTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	if paymentRelated {
		PaymentRequestsTotal.Inc()
	}
}

func CountDecision(decision string) {
	if decision == "" {
		decision = "unknown"
	}
	ApprovalDecisions.WithLabelValues(decision).Inc()
}

func SetPendingApprovals(count int) {
	if count < 0 {
		count = 0
	}
	PendingApprovals.Set(float64(count))
}

func SetActiveSessions(count int64) {
	if count < 0 {
		count = 0
	}
	ActiveSessions.Set(float64(count))
}

func SetSSEClients(count int) {
	if count < 0 {
		count = 0
	}
	SSEClients.Set(float64(count))
}

func ObserveRequestDuration(path string, duration time.Duration) {
	if path == "" {
		path = "unknown"
	}
	HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}
