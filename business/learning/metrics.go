package learning

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AutofillEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autofill_events_total",
			Help: "Count of ingested autofill events by run status and host.",
		},
		[]string{"status", "host"},
	)

	FeedbackEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autofill_feedback_total",
			Help: "Count of explicit feedback signals by status.",
		},
		[]string{"feedback_status"},
	)

	AggregationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "style_aggregation_runs_total",
			Help: "Aggregation passes by result (ok, partial, skipped, error).",
		},
		[]string{"result"},
	)

	AggregationFormsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "style_aggregation_forms_failed_total",
			Help: "Forms skipped during aggregation because their profile could not be built or written.",
		},
	)

	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "style_aggregation_duration_seconds",
			Help:    "Duration of completed aggregation passes.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	EventsPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "autofill_events_pruned_total",
			Help: "Events deleted by the retention pass.",
		},
	)

	ProfileReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_profile_reads_total",
			Help: "Profile reads by outcome (served, quality_rejected, not_found).",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		AutofillEventsTotal,
		FeedbackEventsTotal,
		AggregationRunsTotal,
		AggregationFormsFailedTotal,
		AggregationDuration,
		EventsPrunedTotal,
		ProfileReadsTotal,
	)
}
