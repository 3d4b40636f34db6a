package otp

import (
	"context"

	"github.com/rs/zerolog"

	"veristay/pkg/platform/circuit"
)

// guardedProvider shields the rest of the system from a flapping OTP backend.
// While the breaker is open every GenerateCode call fails fast with
// ErrProviderUnavailable instead of hitting the backend again.
type guardedProvider struct {
	inner   Provider
	breaker *circuit.Breaker
	log     zerolog.Logger
}

// GuardProvider wraps a backend with a circuit breaker. Five consecutive
// backend failures open the circuit; two consecutive successes close it.
func GuardProvider(p Provider, log zerolog.Logger) Provider {
	return &guardedProvider{
		inner: p,
		breaker: circuit.New(p.Name(),
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(2),
		),
		log: log.With().Str("component", "otp-breaker").Str("provider", p.Name()).Logger(),
	}
}

func (p *guardedProvider) Name() string { return p.inner.Name() }

// ValidateID is local format checking and never trips the breaker.
func (p *guardedProvider) ValidateID(idNumber string) error {
	return p.inner.ValidateID(idNumber)
}

func (p *guardedProvider) GenerateCode(ctx context.Context, idNumber string) (string, string, error) {
	if p.breaker.IsOpen() {
		breakerRejections.WithLabelValues(p.inner.Name()).Inc()
		return "", "", ErrProviderUnavailable
	}

	code, providerRef, err := p.inner.GenerateCode(ctx, idNumber)
	if err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.log.Warn().Msg("otp provider circuit opened")
		}
		return "", "", err
	}

	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.log.Info().Msg("otp provider circuit closed")
	}
	return code, providerRef, nil
}
