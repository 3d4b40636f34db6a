// Package otp adapts a swappable third-party identity-OTP backend behind a
// uniform request/verify surface. Challenges are ephemeral and live only in
// the injected challenge store; the raw national ID number is never persisted
// anywhere in this system.
package otp

import (
	"context"
	"time"

	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
)

// Typed failures of the adapter surface. Callers branch with errors.Is.
var (
	ErrInvalidFormat       = dErrors.New(dErrors.CodeInvalidInput, "national id must be a 12 digit number")
	ErrInvalidRequest      = dErrors.New(dErrors.CodeNotFound, "unknown or already consumed challenge")
	ErrExpiredChallenge    = dErrors.New(dErrors.CodeExpired, "challenge has expired")
	ErrInvalidCode         = dErrors.New(dErrors.CodeInvalidInput, "incorrect verification code")
	ErrProviderUnavailable = dErrors.New(dErrors.CodeProviderUnavailable, "otp provider unavailable")
)

// Provider is one identity-OTP backend. Implementations generate the code the
// backend delivers out-of-band; the adapter owns challenge lifetime and the
// at-most-once verify guarantee.
type Provider interface {
	Name() string
	// ValidateID applies backend-specific format and checksum rules beyond
	// the adapter's own 12-digit check. Return ErrInvalidFormat (wrapped ok)
	// to reject.
	ValidateID(idNumber string) error
	// GenerateCode produces the one-time code and an opaque provider
	// reference for the given ID number. The code never reaches API clients
	// in production backends.
	GenerateCode(ctx context.Context, idNumber string) (code, providerRef string, err error)
}

// Challenge is the ephemeral state of one outstanding OTP request.
type Challenge struct {
	RequestID   string       `json:"request_id"`
	SubjectID   id.SubjectID `json:"subject_id"`
	Code        string       `json:"code"`
	ProviderRef string       `json:"provider_ref"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// ChallengeStore holds outstanding challenges. Implementations must make
// Consume atomic: at most one call per request id can ever succeed, under any
// concurrency.
//
// Error contract for Consume:
// - unknown or already consumed request id: sentinel.ErrNotFound
// - challenge past ExpiresAt: sentinel.ErrExpired (the challenge is removed)
// - code mismatch: sentinel.ErrInvalidState (the challenge remains usable)
type ChallengeStore interface {
	Save(ctx context.Context, ch Challenge) error
	Consume(ctx context.Context, requestID, code string, now time.Time) (Challenge, error)
}
