package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "osintq"

var (
	InvestigationStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "investigation_started_total",
			Help:      "Total number of investigations accepted for background execution.",
		},
	)

	InvestigationCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "investigation_completed_total",
			Help:      "Total number of investigations reaching a terminal state, labeled by state.",
		},
		[]string{"state"},
	)

	InvestigationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "investigation_duration_seconds",
			Help:      "End-to-end pipeline latency from start to terminal state (seconds).",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"state"},
	)

	ToolCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Latency of individual collaborator calls (seconds).",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"tool", "outcome"},
	)

	FindingsExtractedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_extracted_total",
			Help:      "Total number of findings returned by the extract tool before dedup.",
		},
	)

	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Total number of completion webhook deliveries, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	RateLimitHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by rate limiting.",
		},
		[]string{"scope", "operation"},
	)
)

func init() {
	prometheus.MustRegister(
		InvestigationStartedTotal,
		InvestigationCompletedTotal,
		InvestigationDurationSeconds,
		ToolCallDurationSeconds,
		FindingsExtractedTotal,
		WebhookDeliveriesTotal,
		RateLimitHitsTotal,
	)
}
