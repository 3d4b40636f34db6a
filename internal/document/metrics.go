package document

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veristay",
		Subsystem: "document",
		Name:      "submissions_total",
		Help:      "Documents submitted, by category.",
	}, []string{"category"})

	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veristay",
		Subsystem: "document",
		Name:      "decisions_total",
		Help:      "Admin review decisions, by effective outcome.",
	}, []string{"outcome"})

	expiryOverrides = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "veristay",
		Subsystem: "document",
		Name:      "expiry_overrides_total",
		Help:      "Verify decisions converted to rejections because the document had expired.",
	})
)
