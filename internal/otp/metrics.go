package otp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengesRequested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veristay_otp_challenges_requested_total",
		Help: "OTP challenges issued, by provider",
	}, []string{"provider"})

	verifyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veristay_otp_verify_outcomes_total",
		Help: "OTP verification attempts, by outcome",
	}, []string{"outcome"})

	breakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veristay_otp_breaker_rejections_total",
		Help: "OTP requests rejected because the provider circuit was open",
	}, []string{"provider"})
)
