package collegemail

//go:generate mockgen -source=../mailer/mailer.go -destination=../mailer/mocks/mocks.go -package=mocks Mailer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"veristay/internal/mailer"
	mailermocks "veristay/internal/mailer/mocks"
	"veristay/internal/notify"
	notifymocks "veristay/internal/notify/mocks"
	"veristay/internal/subject"
	"veristay/internal/trust"
	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/audit"
	auditmemory "veristay/pkg/platform/audit/store/memory"
	"veristay/pkg/requestcontext"
)

type stubCounter struct{}

func (stubCounter) CountByStatus(context.Context, id.SubjectID) (map[id.DocumentStatus]int, error) {
	return map[id.DocumentStatus]int{}, nil
}

type EmailServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mail       *mailermocks.MockMailer
	notifier   *notifymocks.MockNotifier
	subjects   *subject.InMemoryStore
	records    *InMemoryStore
	auditStore *auditmemory.Store
	service    *Service
	owner      id.SubjectID
	admin      id.AdminID
}

func TestEmailServiceSuite(t *testing.T) {
	suite.Run(t, new(EmailServiceSuite))
}

func (s *EmailServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mail = mailermocks.NewMockMailer(s.ctrl)
	s.notifier = notifymocks.NewMockNotifier(s.ctrl)
	s.subjects = subject.NewInMemoryStore()
	s.records = NewInMemoryStore()
	s.auditStore = auditmemory.New()

	log := zerolog.Nop()
	trustSvc := trust.NewService(s.subjects, stubCounter{}, log)
	auditor := audit.NewRecorder(s.auditStore, log)
	classifier := NewClassifier([]string{"iitb.ac.in"}, []string{".ac.in", ".edu"})
	s.service = NewService(s.records, classifier, s.mail, trustSvc, auditor, s.notifier,
		24*time.Hour, "https://veristay.in/verify?token=", log)

	s.owner = id.NewSubjectID()
	s.admin = id.AdminID(id.NewSubjectID())
	sub := &subject.Subject{ID: s.owner, State: id.StateUnverified}
	s.Require().NoError(s.subjects.Create(context.Background(), sub))
}

func (s *EmailServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EmailServiceSuite) adminCtx() context.Context {
	return requestcontext.WithActor(context.Background(), s.admin)
}

// request issues a link and waits for the async mail send to complete so the
// mock controller never races the goroutine.
func (s *EmailServiceSuite) request(email string) RequestResult {
	sent := make(chan map[string]string, 1)
	s.mail.EXPECT().
		Send(gomock.Any(), email, mailer.TemplateEmailVerificationLink, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, data map[string]string) error {
			sent <- data
			return nil
		})

	result, err := s.service.RequestVerification(context.Background(), s.owner, email)
	s.Require().NoError(err)

	select {
	case data := <-sent:
		s.Contains(data["link"], result.Token)
	case <-time.After(2 * time.Second):
		s.FailNow("verification mail was never sent")
	}
	return result
}

func (s *EmailServiceSuite) TestRequestRejectsMalformedEmail() {
	_, err := s.service.RequestVerification(context.Background(), s.owner, "not-an-email")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *EmailServiceSuite) TestRequestIssuesSingleUseToken() {
	result := s.request("priya@iitb.ac.in")
	s.Len(result.Token, 64)
	s.WithinDuration(time.Now().Add(24*time.Hour), result.ExpiresAt, time.Minute)

	rec, err := s.records.FindByToken(context.Background(), result.Token)
	s.Require().NoError(err)
	s.Equal(StatusRequested, rec.Status)
	s.Equal("iitb.ac.in", rec.Domain)
	s.False(rec.Verified)
}

func (s *EmailServiceSuite) TestConfirmAcademicDomainAutoApproves() {
	result := s.request("priya@iitb.ac.in")
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.owner, notify.EventEmailApproved, gomock.Any()).Return(nil)

	confirm, err := s.service.Confirm(context.Background(), result.Token)
	s.Require().NoError(err)
	s.Equal(DecisionAuto, confirm.Decision)
	s.Equal(StatusAutoApproved, confirm.Record.Status)
	s.Equal(id.StateVerifiedStudent, confirm.State)

	sub, err := s.subjects.FindByID(context.Background(), s.owner)
	s.Require().NoError(err)
	s.Equal("priya@iitb.ac.in", sub.Email)
}

func (s *EmailServiceSuite) TestConfirmSuffixMatchAutoApproves() {
	result := s.request("dev@cs.stanford.edu")
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.owner, notify.EventEmailApproved, gomock.Any()).Return(nil)

	confirm, err := s.service.Confirm(context.Background(), result.Token)
	s.Require().NoError(err)
	s.Equal(DecisionAuto, confirm.Decision)
	s.Equal(id.StateVerifiedStudent, confirm.State)
}

// An unrecognized domain escalates to the admin pool, exactly once, and the
// subject parks in the pending-admin state until a verdict lands.
func (s *EmailServiceSuite) TestConfirmUnknownDomainEscalates() {
	result := s.request("intern@acmecorp.com")
	s.notifier.EXPECT().NotifyAdmins(gomock.Any(), notify.EventEmailEscalated, gomock.Any()).Return(nil).Times(1)

	confirm, err := s.service.Confirm(context.Background(), result.Token)
	s.Require().NoError(err)
	s.Equal(DecisionEscalate, confirm.Decision)
	s.Equal(StatusPendingAdmin, confirm.Record.Status)
	s.Equal(id.StateEmailPendingAdmin, confirm.State)

	// A repeat click is an idempotent success with no second fan-out.
	again, err := s.service.Confirm(context.Background(), result.Token)
	s.Require().NoError(err)
	s.True(again.AlreadyConfirmed)
	s.Empty(again.State)
}

func (s *EmailServiceSuite) TestConfirmIsIdempotent() {
	result := s.request("priya@iitb.ac.in")
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.owner, notify.EventEmailApproved, gomock.Any()).Return(nil).Times(1)

	_, err := s.service.Confirm(context.Background(), result.Token)
	s.Require().NoError(err)

	again, err := s.service.Confirm(context.Background(), result.Token)
	s.Require().NoError(err)
	s.True(again.AlreadyConfirmed)

	sub, err := s.subjects.FindByID(context.Background(), s.owner)
	s.Require().NoError(err)
	s.Len(sub.TrackEvents, 1, "repeat confirmation appends no event")
}

func (s *EmailServiceSuite) TestConfirmUnknownToken() {
	_, err := s.service.Confirm(context.Background(), "deadbeef")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *EmailServiceSuite) TestConfirmExpiredToken() {
	result := s.request("priya@iitb.ac.in")

	later := requestcontext.WithTime(context.Background(), time.Now().Add(25*time.Hour))
	_, err := s.service.Confirm(later, result.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	sub, findErr := s.subjects.FindByID(context.Background(), s.owner)
	s.Require().NoError(findErr)
	s.Equal(id.StateUnverified, sub.State)
}

func (s *EmailServiceSuite) escalate() RequestResult {
	result := s.request("intern@acmecorp.com")
	s.notifier.EXPECT().NotifyAdmins(gomock.Any(), notify.EventEmailEscalated, gomock.Any()).Return(nil)
	_, err := s.service.Confirm(context.Background(), result.Token)
	s.Require().NoError(err)
	return result
}

func (s *EmailServiceSuite) TestAdminApprove() {
	s.escalate()
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.owner, notify.EventEmailApproved, gomock.Any()).Return(nil)

	rec, state, err := s.service.AdminApprove(s.adminCtx(), s.owner)
	s.Require().NoError(err)
	s.Equal(StatusAdminApproved, rec.Status)
	s.Equal(s.admin, rec.DecidedBy)
	s.Equal(id.StateVerifiedStudent, state)

	sub, err := s.subjects.FindByID(context.Background(), s.owner)
	s.Require().NoError(err)
	s.Equal("intern@acmecorp.com", sub.Email)
}

func (s *EmailServiceSuite) TestAdminReject() {
	s.escalate()
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.owner, notify.EventEmailRejected, gomock.Any()).Return(nil)

	rec, state, err := s.service.AdminReject(s.adminCtx(), s.owner, "domain is a known mail forwarder")
	s.Require().NoError(err)
	s.Equal(StatusAdminRejected, rec.Status)
	s.Equal("domain is a known mail forwarder", rec.RejectionReason)
	s.Equal(id.StateVerificationFailed, state)
}

func (s *EmailServiceSuite) TestAdminRejectRequiresReason() {
	s.escalate()
	_, _, err := s.service.AdminReject(s.adminCtx(), s.owner, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *EmailServiceSuite) TestAdminDecisionNeedsPendingRecord() {
	_, _, err := s.service.AdminApprove(s.adminCtx(), s.owner)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *EmailServiceSuite) TestAdminDecisionIsFinal() {
	s.escalate()
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.owner, notify.EventEmailApproved, gomock.Any()).Return(nil)

	_, _, err := s.service.AdminApprove(s.adminCtx(), s.owner)
	s.Require().NoError(err)

	_, _, err = s.service.AdminReject(s.adminCtx(), s.owner, "too late")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "no pending record remains after a verdict")
}

// Two admins deciding one escalated record at once: exactly one verdict
// commits, the loser gets a conflict (or finds nothing pending), and the
// subject hears exactly one outcome.
func (s *EmailServiceSuite) TestAdminVerdictsConcurrentSingleWinner() {
	s.escalate()
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.owner, gomock.Any(), gomock.Any()).Return(nil).Times(1)

	const admins = 6
	errs := make([]error, admins)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ctx := requestcontext.WithActor(context.Background(), id.AdminID(id.NewSubjectID()))
			if i%2 == 0 {
				_, _, errs[i] = s.service.AdminApprove(ctx, s.owner)
			} else {
				_, _, errs[i] = s.service.AdminReject(ctx, s.owner, "unrecognized domain")
			}
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		lost := dErrors.HasCode(err, dErrors.CodeConflict) || dErrors.HasCode(err, dErrors.CodeNotFound)
		s.True(lost, "loser error: %v", err)
	}
	s.Equal(1, wins)

	entries, err := s.auditStore.ListBySubject(context.Background(), s.owner)
	s.Require().NoError(err)
	verdicts := 0
	for _, e := range entries {
		if e.Action == audit.ActionAdminApproveEmail || e.Action == audit.ActionAdminRejectEmail {
			verdicts++
		}
	}
	s.Equal(1, verdicts, "exactly one verdict reaches the audit trail")
}

// Many simultaneous clicks on one confirmation link: one caller does the
// classification and fold, every other gets the idempotent repeat, and the
// subject is notified once.
func (s *EmailServiceSuite) TestConfirmConcurrentSingleFanOut() {
	result := s.request("priya@iitb.ac.in")
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.owner, notify.EventEmailApproved, gomock.Any()).Return(nil).Times(1)

	const clicks = 8
	results := make([]ConfirmResult, clicks)
	errs := make([]error, clicks)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = s.service.Confirm(context.Background(), result.Token)
		}(i)
	}
	close(start)
	wg.Wait()

	firsts := 0
	for i := range results {
		s.Require().NoError(errs[i])
		if !results[i].AlreadyConfirmed {
			firsts++
		}
	}
	s.Equal(1, firsts, "exactly one click is the first confirmation")

	sub, err := s.subjects.FindByID(context.Background(), s.owner)
	s.Require().NoError(err)
	s.Len(sub.TrackEvents, 1, "the fold ran once")
}

// With no allow-list and no suffixes, classification is off: confirmation
// proves reachability and nothing else.
func (s *EmailServiceSuite) TestClassificationDisabledYieldsPlainVerification() {
	log := zerolog.Nop()
	trustSvc := trust.NewService(s.subjects, stubCounter{}, log)
	auditor := audit.NewRecorder(s.auditStore, log)
	plain := NewService(s.records, NewClassifier(nil, nil), s.mail, trustSvc, auditor, s.notifier,
		24*time.Hour, "https://veristay.in/verify?token=", log)

	sent := make(chan struct{}, 1)
	s.mail.EXPECT().Send(gomock.Any(), "anyone@gmail.com", mailer.TemplateEmailVerificationLink, gomock.Any()).
		DoAndReturn(func(context.Context, string, string, map[string]string) error {
			sent <- struct{}{}
			return nil
		})
	result, err := plain.RequestVerification(context.Background(), s.owner, "anyone@gmail.com")
	s.Require().NoError(err)
	<-sent

	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.owner, notify.EventEmailApproved, gomock.Any()).Return(nil)
	confirm, err := plain.Confirm(context.Background(), result.Token)
	s.Require().NoError(err)
	s.Equal(DecisionPlain, confirm.Decision)
	s.Equal(id.StateEmailVerified, confirm.State)
}

func TestClassifier(t *testing.T) {
	c := NewClassifier([]string{"iitb.ac.in"}, []string{".ac.in", ".edu"})
	assert.True(t, c.Enabled())
	assert.Equal(t, DecisionAuto, c.Classify("iitb.ac.in"))
	assert.Equal(t, DecisionAuto, c.Classify("IITB.AC.IN"))
	assert.Equal(t, DecisionAuto, c.Classify("physics.iisc.ac.in"))
	assert.Equal(t, DecisionAuto, c.Classify("mit.edu"))
	assert.Equal(t, DecisionEscalate, c.Classify("acmecorp.com"))
	assert.Equal(t, DecisionEscalate, c.Classify("education.com"))

	off := NewClassifier(nil, nil)
	assert.False(t, off.Enabled())
	assert.Equal(t, DecisionPlain, off.Classify("anything.com"))
}
