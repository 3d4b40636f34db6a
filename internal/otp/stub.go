package otp

import "context"

// stubProvider is the safe fallback when no real backend is configured. It
// fails closed: requests are refused, so nobody can reach aadhaar_verified
// through a misconfigured deployment.
type stubProvider struct{}

func newStubProvider() *stubProvider { return &stubProvider{} }

func (p *stubProvider) Name() string { return "disabled" }

func (p *stubProvider) ValidateID(string) error { return nil }

func (p *stubProvider) GenerateCode(context.Context, string) (string, string, error) {
	return "", "", ErrProviderUnavailable
}
