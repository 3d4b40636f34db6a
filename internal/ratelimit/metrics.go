package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "veristay_ratelimit_rejections_total",
	Help: "Requests rejected by the rate limiter, by route",
}, []string{"route"})
