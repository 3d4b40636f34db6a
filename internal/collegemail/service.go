package collegemail

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"veristay/internal/mailer"
	"veristay/internal/notify"
	"veristay/internal/subject"
	"veristay/internal/trust"
	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/audit"
	"veristay/pkg/platform/sentinel"
	"veristay/pkg/requestcontext"
)

// Service orchestrates the email track: link issuance, single-use
// confirmation, domain classification, and the admin escalation path.
type Service struct {
	records    Store
	classifier *Classifier
	mail       mailer.Mailer
	trust      *trust.Service
	auditor    *audit.Recorder
	notifier   notify.Notifier

	tokenTTL       time.Duration
	confirmBaseURL string
	log            zerolog.Logger
}

func NewService(records Store, classifier *Classifier, mail mailer.Mailer, trustSvc *trust.Service,
	auditor *audit.Recorder, notifier notify.Notifier, tokenTTL time.Duration, confirmBaseURL string,
	log zerolog.Logger) *Service {
	return &Service{
		records:        records,
		classifier:     classifier,
		mail:           mail,
		trust:          trustSvc,
		auditor:        auditor,
		notifier:       notifier,
		tokenTTL:       tokenTTL,
		confirmBaseURL: confirmBaseURL,
		log:            log,
	}
}

// RequestResult reports an issued verification link.
type RequestResult struct {
	Token     string
	ExpiresAt time.Time
}

// RequestVerification issues a fresh single-use token for the claimed email
// and mails the confirmation link. Sending happens off the request path; a
// delivery failure is logged, the token stays valid.
func (s *Service) RequestVerification(ctx context.Context, owner id.SubjectID, claimedEmail string) (RequestResult, error) {
	addr, err := mail.ParseAddress(claimedEmail)
	if err != nil {
		return RequestResult{}, dErrors.New(dErrors.CodeInvalidInput, "claimed email is not a valid address")
	}
	email := strings.ToLower(addr.Address)
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]

	token, err := newToken()
	if err != nil {
		return RequestResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate verification token")
	}

	now := requestcontext.Now(ctx)
	rec := &Record{
		Token:        token,
		OwnerID:      owner,
		ClaimedEmail: email,
		Domain:       domain,
		Status:       StatusRequested,
		ExpiresAt:    now.Add(s.tokenTTL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return RequestResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "store email verification")
	}

	requestsTotal.Inc()
	s.auditor.Record(ctx, audit.Entry{
		SubjectID: owner,
		Action:    audit.ActionRequestEmailVerification,
		Reason:    domain,
	})

	sendCtx := context.WithoutCancel(ctx)
	go func() {
		err := s.mail.Send(sendCtx, email, mailer.TemplateEmailVerificationLink, map[string]string{
			"link": s.confirmBaseURL + token,
		})
		if err != nil {
			s.log.Warn().Err(err).
				Str("subject_id", owner.String()).
				Str("domain", domain).
				Msg("verification mail delivery failed")
		}
	}()

	return RequestResult{Token: token, ExpiresAt: rec.ExpiresAt}, nil
}

// ConfirmResult reports what a confirmation click did.
type ConfirmResult struct {
	Record           *Record
	Decision         Decision
	AlreadyConfirmed bool
	// State is the subject's verification state after the fold; empty on a
	// repeat confirmation, which changes nothing.
	State id.VerificationState
}

// Confirm consumes a verification link. The first confirmation classifies the
// domain and folds the outcome into the subject's state; any repeat is an
// idempotent success with no further side effects.
func (s *Service) Confirm(ctx context.Context, token string) (ConfirmResult, error) {
	rec, err := s.records.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			confirmOutcomes.WithLabelValues("unknown_token").Inc()
			return ConfirmResult{}, dErrors.Wrap(err, dErrors.CodeNotFound, "verification token not found")
		}
		return ConfirmResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load email verification")
	}

	now := requestcontext.Now(ctx)
	if !rec.Verified && rec.Expired(now) {
		confirmOutcomes.WithLabelValues("expired").Inc()
		return ConfirmResult{}, dErrors.New(dErrors.CodeExpired, "verification token expired")
	}

	decision := s.classifier.Classify(rec.Domain)
	status := StatusAutoApproved
	kind := id.EventEmailAutoApproved
	switch decision {
	case DecisionEscalate:
		status = StatusPendingAdmin
		kind = id.EventEmailEscalated
	case DecisionPlain:
		kind = id.EventEmailConfirmed
	}

	rec, first, err := s.records.MarkVerified(ctx, token, status, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ConfirmResult{}, dErrors.Wrap(err, dErrors.CodeNotFound, "verification token not found")
		}
		return ConfirmResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "mark email verified")
	}
	if !first {
		confirmOutcomes.WithLabelValues("repeat").Inc()
		return ConfirmResult{Record: rec, Decision: decision, AlreadyConfirmed: true}, nil
	}

	claimed := rec.ClaimedEmail
	sub, err := s.trust.Apply(ctx, rec.OwnerID, id.TrackEvent{Kind: kind}, func(sub *subject.Subject) error {
		if kind != id.EventEmailEscalated {
			sub.Email = claimed
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.revertConfirmation(ctx, rec)
		}
		return ConfirmResult{}, err
	}

	confirmOutcomes.WithLabelValues(string(decision)).Inc()
	action := audit.ActionVerifyEmail
	if decision == DecisionEscalate {
		action = audit.ActionVerifyEmailPending
	}
	s.auditor.Record(ctx, audit.Entry{
		SubjectID: rec.OwnerID,
		Action:    action,
		Token:     token,
		Reason:    rec.Domain,
	})

	if decision == DecisionEscalate {
		s.notifyAdmins(ctx, rec)
	} else {
		s.notifySubject(ctx, rec.OwnerID, notify.EventEmailApproved, map[string]string{"email": claimed})
	}
	return ConfirmResult{Record: rec, Decision: decision, State: sub.State}, nil
}

// AdminApprove accepts a subject's escalated email verification.
func (s *Service) AdminApprove(ctx context.Context, owner id.SubjectID) (*Record, id.VerificationState, error) {
	rec, err := s.findPending(ctx, owner)
	if err != nil {
		return nil, "", err
	}

	now := requestcontext.Now(ctx)
	rec.Status = StatusAdminApproved
	rec.DecidedBy = requestcontext.Actor(ctx)
	rec.UpdatedAt = now
	// Guarded on pending_admin: of two racing verdicts exactly one commits,
	// the other conflicts before any fold, audit, or notification.
	if err := s.records.Update(ctx, rec, StatusPendingAdmin); err != nil {
		return nil, "", decisionWriteErr(err)
	}

	claimed := rec.ClaimedEmail
	sub, err := s.trust.Apply(ctx, owner, id.TrackEvent{Kind: id.EventEmailAdminApproved}, func(sub *subject.Subject) error {
		sub.Email = claimed
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	adminDecisions.WithLabelValues("approved").Inc()
	s.auditor.Record(ctx, audit.Entry{
		SubjectID: owner,
		ActorID:   rec.DecidedBy,
		Action:    audit.ActionAdminApproveEmail,
		Token:     rec.Token,
	})
	s.notifySubject(ctx, owner, notify.EventEmailApproved, map[string]string{"email": claimed})
	return rec, sub.State, nil
}

// AdminReject declines a subject's escalated email verification. A reason is
// required and is relayed to the subject.
func (s *Service) AdminReject(ctx context.Context, owner id.SubjectID, reason string) (*Record, id.VerificationState, error) {
	if reason == "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "rejection requires a reason")
	}
	rec, err := s.findPending(ctx, owner)
	if err != nil {
		return nil, "", err
	}

	now := requestcontext.Now(ctx)
	rec.Status = StatusAdminRejected
	rec.DecidedBy = requestcontext.Actor(ctx)
	rec.RejectionReason = reason
	rec.UpdatedAt = now
	if err := s.records.Update(ctx, rec, StatusPendingAdmin); err != nil {
		return nil, "", decisionWriteErr(err)
	}

	sub, err := s.trust.Apply(ctx, owner, id.TrackEvent{Kind: id.EventEmailAdminRejected}, nil)
	if err != nil {
		return nil, "", err
	}

	adminDecisions.WithLabelValues("rejected").Inc()
	s.auditor.Record(ctx, audit.Entry{
		SubjectID: owner,
		ActorID:   rec.DecidedBy,
		Action:    audit.ActionAdminRejectEmail,
		Token:     rec.Token,
		Reason:    reason,
	})
	s.notifySubject(ctx, owner, notify.EventEmailRejected, map[string]string{
		"email":  rec.ClaimedEmail,
		"reason": reason,
	})
	return rec, sub.State, nil
}

func (s *Service) findPending(ctx context.Context, owner id.SubjectID) (*Record, error) {
	rec, err := s.records.FindPendingAdmin(ctx, owner)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no email verification awaiting review")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load email verification")
	}
	return rec, nil
}

// decisionWriteErr maps a failed status-guarded admin verdict write. A
// conflict means another admin decided the record first.
func decisionWriteErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "email verification was decided by another admin")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "no email verification awaiting review")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "store email verification")
	}
}

// revertConfirmation undoes a MarkVerified whose subject fold failed because
// the subject no longer exists. Best effort.
func (s *Service) revertConfirmation(ctx context.Context, rec *Record) {
	from := rec.Status
	rec.Verified = false
	rec.VerifiedAt = nil
	rec.Status = StatusRequested
	if err := s.records.Update(ctx, rec, from); err != nil {
		s.log.Warn().Err(err).
			Str("subject_id", rec.OwnerID.String()).
			Msg("could not revert email confirmation for missing subject")
	}
}

func (s *Service) notifySubject(ctx context.Context, subjectID id.SubjectID, event notify.Event, data map[string]string) {
	if err := s.notifier.NotifySubject(ctx, subjectID, event, data); err != nil {
		s.log.Warn().Err(err).Str("event", string(event)).Msg("subject notification failed")
	}
}

func (s *Service) notifyAdmins(ctx context.Context, rec *Record) {
	err := s.notifier.NotifyAdmins(ctx, notify.EventEmailEscalated, map[string]string{
		"subject_id": rec.OwnerID.String(),
		"email":      rec.ClaimedEmail,
		"domain":     rec.Domain,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("admin escalation notification failed")
	}
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random token bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
