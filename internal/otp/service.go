package otp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"veristay/internal/notify"
	"veristay/internal/subject"
	"veristay/internal/trust"
	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/audit"
	"veristay/pkg/platform/sentinel"
	"veristay/pkg/requestcontext"
)

var idNumberPattern = regexp.MustCompile(`^[0-9]{12}$`)

// Service is the OTP Provider Adapter: a uniform request/verify surface over
// the configured backend plus the injected challenge store.
type Service struct {
	provider Provider
	store    ChallengeStore
	ttl      time.Duration
	trust    *trust.Service
	auditor  *audit.Recorder
	notifier notify.Notifier
	log      zerolog.Logger
}

func NewService(
	provider Provider,
	store ChallengeStore,
	ttl time.Duration,
	trustSvc *trust.Service,
	auditor *audit.Recorder,
	notifier notify.Notifier,
	log zerolog.Logger,
) *Service {
	return &Service{
		provider: provider,
		store:    store,
		ttl:      ttl,
		trust:    trustSvc,
		auditor:  auditor,
		notifier: notifier,
		log:      log,
	}
}

// RequestResult is returned from RequestChallenge.
type RequestResult struct {
	RequestID   string
	ProviderRef string
	// DevCode carries the generated code only for the sandbox backend so
	// development clients can complete the flow without SMS delivery.
	DevCode string
}

// RequestChallenge validates the ID number, asks the backend for a code, and
// stores the challenge under a fresh request id. Nothing about the subject is
// mutated; the ID number itself is hashed before it touches the audit trail.
func (s *Service) RequestChallenge(ctx context.Context, subjectID id.SubjectID, idNumber string) (RequestResult, error) {
	if !idNumberPattern.MatchString(idNumber) {
		return RequestResult{}, ErrInvalidFormat
	}
	if err := s.provider.ValidateID(idNumber); err != nil {
		return RequestResult{}, ErrInvalidFormat
	}

	code, providerRef, err := s.provider.GenerateCode(ctx, idNumber)
	if err != nil {
		// Provider failures leave local state untouched.
		if dErrors.HasCode(err, dErrors.CodeProviderUnavailable) {
			return RequestResult{}, err
		}
		return RequestResult{}, dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "otp backend failed to issue code")
	}

	ch := Challenge{
		RequestID:   uuid.NewString(),
		SubjectID:   subjectID,
		Code:        code,
		ProviderRef: providerRef,
		ExpiresAt:   requestcontext.Now(ctx).Add(s.ttl),
	}
	if err := s.store.Save(ctx, ch); err != nil {
		return RequestResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "store challenge")
	}

	challengesRequested.WithLabelValues(s.provider.Name()).Inc()
	s.auditor.Record(ctx, audit.Entry{
		SubjectID:     subjectID,
		Action:        audit.ActionRequestAadhaarOTP,
		ProviderRef:   providerRef,
		SubjectIDHash: hashIDNumber(idNumber),
	})

	result := RequestResult{RequestID: ch.RequestID, ProviderRef: providerRef}
	if s.provider.Name() == "sandbox" {
		result.DevCode = code
		s.log.Debug().Str("request_id", ch.RequestID).Str("code", code).Msg("sandbox otp issued")
	}
	return result, nil
}

// VerifyResult is returned from VerifyChallenge.
type VerifyResult struct {
	ProviderRef string
	State       id.VerificationState
}

// VerifyChallenge consumes the challenge and, on success, promotes the
// subject's aadhaar record and canonical state. The store guarantees at most
// one successful consume per request id; every later call lands on
// ErrInvalidRequest.
func (s *Service) VerifyChallenge(ctx context.Context, requestID, code string) (VerifyResult, error) {
	now := requestcontext.Now(ctx)
	ch, err := s.store.Consume(ctx, requestID, code, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			verifyOutcomes.WithLabelValues("invalid_request").Inc()
			return VerifyResult{}, ErrInvalidRequest
		case errors.Is(err, sentinel.ErrExpired):
			verifyOutcomes.WithLabelValues("expired").Inc()
			return VerifyResult{}, ErrExpiredChallenge
		case errors.Is(err, sentinel.ErrInvalidState):
			verifyOutcomes.WithLabelValues("invalid_code").Inc()
			return VerifyResult{}, ErrInvalidCode
		default:
			verifyOutcomes.WithLabelValues("store_error").Inc()
			return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "consume challenge")
		}
	}

	sub, err := s.trust.Apply(ctx, ch.SubjectID, id.TrackEvent{Kind: id.EventAadhaarOTPVerified}, func(sub *subject.Subject) error {
		verifiedAt := now
		sub.Aadhaar = subject.AadhaarRecord{
			Verified:    true,
			VerifiedAt:  &verifiedAt,
			ProviderRef: ch.ProviderRef,
		}
		return nil
	})
	if err != nil {
		return VerifyResult{}, err
	}

	verifyOutcomes.WithLabelValues("verified").Inc()
	s.auditor.Record(ctx, audit.Entry{
		SubjectID:   ch.SubjectID,
		Action:      audit.ActionVerifyAadhaarOTP,
		ProviderRef: ch.ProviderRef,
	})
	if err := s.notifier.NotifySubject(ctx, ch.SubjectID, notify.EventAadhaarVerified, nil); err != nil {
		s.log.Warn().Err(err).Str("subject_id", ch.SubjectID.String()).Msg("aadhaar notification failed")
	}

	return VerifyResult{ProviderRef: ch.ProviderRef, State: sub.State}, nil
}

func hashIDNumber(idNumber string) string {
	sum := sha256.Sum256([]byte(idNumber))
	return hex.EncodeToString(sum[:])
}
