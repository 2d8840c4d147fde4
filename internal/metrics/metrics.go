// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LegsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarforge_legs_received_total",
			Help: "Leg confirmations received, by leg type and append result",
		},
		[]string{"leg_type", "result"},
	)

	ReconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarforge_reconcile_outcomes_total",
			Help: "Reconciler outcomes per leg",
		},
		[]string{"leg_type", "outcome"},
	)

	Anomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarforge_correlation_anomalies_total",
			Help: "Correlation anomalies recorded, by kind",
		},
		[]string{"kind"},
	)

	SunshinesApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solarforge_sunshines_applied_total",
			Help: "Sunshines credited to balances by completed donations",
		},
	)

	DonationsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solarforge_donations_expired_total",
			Help: "Pending donations expired by the sweeper",
		},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarforge_outbox_published_total",
			Help: "Outbox events relayed, by event type and result",
		},
		[]string{"event_type", "result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solarforge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"route", "status"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solarforge_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
