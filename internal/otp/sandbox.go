package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// sandboxProvider is the development and test backend. It issues genuinely
// random codes but delivers nothing; deployments surface the code through
// logs or test hooks.
type sandboxProvider struct{}

func newSandboxProvider() *sandboxProvider { return &sandboxProvider{} }

func (p *sandboxProvider) Name() string { return "sandbox" }

func (p *sandboxProvider) ValidateID(string) error { return nil }

func (p *sandboxProvider) GenerateCode(_ context.Context, _ string) (string, string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", "", fmt.Errorf("generate otp code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	return code, "sandbox:" + uuid.NewString(), nil
}
