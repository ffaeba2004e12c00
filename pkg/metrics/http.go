package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of learning HTTP handlers, by route template
	HTTPRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "learning_http_request_latency_seconds",
		Help:    "Latency of learning HTTP handlers",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Total number of HTTP requests served, by route and status code
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "learning_http_requests_total",
		Help: "Total number of learning HTTP requests",
	}, []string{"route", "method", "status"})
)

func Init() {
	prometheus.MustRegister(
		HTTPRequestLatency,
		HTTPRequestsTotal,
	)
}
