package bandit

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BanditDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_decisions_total",
			Help: "Count of server-side style decisions by policy branch.",
		},
		[]string{"policy"},
	)
)

func init() {
	prometheus.MustRegister(BanditDecisionsTotal)
}
