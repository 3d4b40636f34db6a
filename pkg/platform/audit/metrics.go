package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entriesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veristay_audit_entries_recorded_total",
		Help: "Audit entries accepted by the recorder, by action",
	}, []string{"action"})

	writeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veristay_audit_write_failures_total",
		Help: "Audit store or sink writes that failed; the primary operation proceeded",
	}, []string{"target"})
)
