package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal tracks HTTP calls per endpoint and result
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictctl_api_requests_total",
			Help: "Total number of prediction service requests",
		},
		[]string{"endpoint", "result"},
	)

	// APILatency tracks request latency
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predictctl_api_latency_seconds",
			Help:    "Prediction service request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// RetriesTotal tracks retries per policy (fetch, poll, balance)
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictctl_retries_total",
			Help: "Total number of retries by policy",
		},
		[]string{"policy"},
	)

	// PollOutcomes tracks classified status checks
	PollOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictctl_poll_outcomes_total",
			Help: "Total number of status checks by classified outcome",
		},
		[]string{"outcome"},
	)

	// ActivePolls tracks predictions currently being polled
	ActivePolls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "predictctl_active_polls",
			Help: "Number of predictions currently being polled",
		},
	)

	// Balance tracks the last published balance
	Balance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "predictctl_balance_credits",
			Help: "Last known credit balance",
		},
	)
)
