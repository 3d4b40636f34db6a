package collegemail

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "veristay",
		Subsystem: "college_email",
		Name:      "requests_total",
		Help:      "Email verification links requested.",
	})

	confirmOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veristay",
		Subsystem: "college_email",
		Name:      "confirm_outcomes_total",
		Help:      "Confirmation link outcomes.",
	}, []string{"outcome"})

	adminDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veristay",
		Subsystem: "college_email",
		Name:      "admin_decisions_total",
		Help:      "Admin verdicts on escalated email verifications.",
	}, []string{"decision"})
)
