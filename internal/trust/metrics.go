package trust

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	applyRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veristay_trust_apply_retries_total",
		Help: "Optimistic-concurrency retries while recomputing subject state",
	})

	applyConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veristay_trust_apply_conflicts_total",
		Help: "Apply operations that exhausted their retry budget",
	})

	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veristay_trust_state_transitions_total",
		Help: "Canonical state transitions, by resulting state",
	}, []string{"state"})
)
