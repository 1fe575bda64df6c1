package service

import (
	"matchwell/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	interestOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchwell_interest_operations_total",
		Help: "Interest coordinator operations by operation and outcome",
	}, []string{"op", "outcome"})

	interestAtomicRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchwell_interest_atomic_retries_total",
		Help: "Check-then-write attempts retried after a conflict",
	}, []string{"op"})

	notificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchwell_notification_failures_total",
		Help: "Notification write failures by stage (initial, retry, dropped)",
	}, []string{"stage"})

	notificationRetryDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchwell_notification_retry_queue_depth",
		Help: "Notifications waiting for a retry",
	})

	enrichmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchwell_enrichment_failures_total",
		Help: "Counterpart enrichment lookups that degraded to empty fields",
	}, []string{"source"})
)

func observeOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	interestOperations.WithLabelValues(op, outcome).Inc()
}
