package review

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/confhub/backend/core/abstract"
)

var (
	reviewWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "confhub",
			Subsystem: "review",
			Name:      "writes_total",
			Help:      "Number of committed review writes by operation.",
		},
		[]string{"operation"},
	)
	abstractDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "confhub",
			Subsystem: "review",
			Name:      "decisions_total",
			Help:      "Number of abstract status changes made by review aggregation.",
		},
		[]string{"status", "presentation_type"},
	)
)

func init() {
	prometheus.MustRegister(reviewWrites, abstractDecisions)
}

func recordDecision(abs abstract.Abstract) {
	pt := string(abs.PresentationType)
	if pt == "" {
		pt = "none"
	}
	abstractDecisions.WithLabelValues(string(abs.Status), pt).Inc()
}
