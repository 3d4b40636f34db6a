package otp

//go:generate mockgen -source=../notify/notifier.go -destination=../notify/mocks/mocks.go -package=mocks Notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

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

const validIDNumber = "123456789012"

type stubCounter struct{}

func (stubCounter) CountByStatus(context.Context, id.SubjectID) (map[id.DocumentStatus]int, error) {
	return map[id.DocumentStatus]int{}, nil
}

type OTPServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	notifier   *notifymocks.MockNotifier
	subjects   *subject.InMemoryStore
	challenges *InMemoryChallengeStore
	auditStore *auditmemory.Store
	service    *Service
	subID      id.SubjectID
}

func TestOTPServiceSuite(t *testing.T) {
	suite.Run(t, new(OTPServiceSuite))
}

func (s *OTPServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.notifier = notifymocks.NewMockNotifier(s.ctrl)
	s.subjects = subject.NewInMemoryStore()
	s.challenges = NewInMemoryChallengeStore()
	s.auditStore = auditmemory.New()

	log := zerolog.Nop()
	trustSvc := trust.NewService(s.subjects, stubCounter{}, log)
	auditor := audit.NewRecorder(s.auditStore, log)
	s.service = NewService(newSandboxProvider(), s.challenges, 5*time.Minute, trustSvc, auditor, s.notifier, log)

	s.subID = id.NewSubjectID()
	sub := &subject.Subject{ID: s.subID, State: id.StateUnverified}
	s.Require().NoError(s.subjects.Create(context.Background(), sub))
}

func (s *OTPServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OTPServiceSuite) request() RequestResult {
	result, err := s.service.RequestChallenge(context.Background(), s.subID, validIDNumber)
	s.Require().NoError(err)
	return result
}

func (s *OTPServiceSuite) TestRequestRejectsMalformedID() {
	for _, idNumber := range []string{"", "12345", "12345678901a", "1234567890123"} {
		_, err := s.service.RequestChallenge(context.Background(), s.subID, idNumber)
		s.ErrorIs(err, ErrInvalidFormat, "id %q", idNumber)
	}
}

func (s *OTPServiceSuite) TestRequestIssuesSandboxCode() {
	result := s.request()
	s.NotEmpty(result.RequestID)
	s.Regexp(`^[0-9]{6}$`, result.DevCode)
	s.Contains(result.ProviderRef, "sandbox:")
}

func (s *OTPServiceSuite) TestRequestHashesIDNumberInAudit() {
	s.request()

	entries, err := s.auditStore.ListBySubject(context.Background(), s.subID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionRequestAadhaarOTP, entries[0].Action)
	s.Len(entries[0].SubjectIDHash, 64)
	s.NotContains(entries[0].SubjectIDHash, validIDNumber)
}

func (s *OTPServiceSuite) TestVerifyPromotesSubject() {
	result := s.request()
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.subID, notify.EventAadhaarVerified, gomock.Any()).Return(nil)

	verify, err := s.service.VerifyChallenge(context.Background(), result.RequestID, result.DevCode)
	s.Require().NoError(err)
	s.Equal(id.StateAadhaarVerified, verify.State)
	s.Equal(result.ProviderRef, verify.ProviderRef)

	sub, err := s.subjects.FindByID(context.Background(), s.subID)
	s.Require().NoError(err)
	s.True(sub.Aadhaar.Verified)
	s.Equal(result.ProviderRef, sub.Aadhaar.ProviderRef)
}

// A wrong code must not burn the challenge: the holder retries with the right
// code and still succeeds before expiry.
func (s *OTPServiceSuite) TestWrongCodeLeavesChallengeUsable() {
	result := s.request()

	for i := 0; i < 3; i++ {
		_, err := s.service.VerifyChallenge(context.Background(), result.RequestID, "000000")
		if result.DevCode == "000000" {
			s.T().Skip("sandbox happened to issue the guessed code")
		}
		s.ErrorIs(err, ErrInvalidCode)
	}

	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.subID, notify.EventAadhaarVerified, gomock.Any()).Return(nil)
	verify, err := s.service.VerifyChallenge(context.Background(), result.RequestID, result.DevCode)
	s.Require().NoError(err)
	s.Equal(id.StateAadhaarVerified, verify.State)
}

func (s *OTPServiceSuite) TestConsumedChallengeCannotBeReplayed() {
	result := s.request()
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.subID, notify.EventAadhaarVerified, gomock.Any()).Return(nil)

	_, err := s.service.VerifyChallenge(context.Background(), result.RequestID, result.DevCode)
	s.Require().NoError(err)

	_, err = s.service.VerifyChallenge(context.Background(), result.RequestID, result.DevCode)
	s.ErrorIs(err, ErrInvalidRequest)
}

func (s *OTPServiceSuite) TestExpiredChallenge() {
	result := s.request()

	later := requestcontext.WithTime(context.Background(), time.Now().Add(6*time.Minute))
	_, err := s.service.VerifyChallenge(later, result.RequestID, result.DevCode)
	s.ErrorIs(err, ErrExpiredChallenge)

	// Expiry removes the challenge entirely.
	_, err = s.service.VerifyChallenge(context.Background(), result.RequestID, result.DevCode)
	s.ErrorIs(err, ErrInvalidRequest)
}

func (s *OTPServiceSuite) TestUnknownRequestID() {
	_, err := s.service.VerifyChallenge(context.Background(), "no-such-request", "123456")
	s.ErrorIs(err, ErrInvalidRequest)
}

// Many simultaneous verify attempts with the right code: the atomic consume
// lets exactly one through, the rest see the challenge gone.
func (s *OTPServiceSuite) TestVerifyConcurrentAttemptsConsumeOnce() {
	result := s.request()
	s.notifier.EXPECT().NotifySubject(gomock.Any(), s.subID, notify.EventAadhaarVerified, gomock.Any()).Return(nil).Times(1)

	const attempts = 8
	errs := make([]error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = s.service.VerifyChallenge(context.Background(), result.RequestID, result.DevCode)
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
		s.ErrorIs(err, ErrInvalidRequest)
	}
	s.Equal(1, wins)

	sub, err := s.subjects.FindByID(context.Background(), s.subID)
	s.Require().NoError(err)
	s.Len(sub.TrackEvents, 1, "the fold ran once")
}

func (s *OTPServiceSuite) TestProviderFailureLeavesStateUntouched() {
	log := zerolog.Nop()
	trustSvc := trust.NewService(s.subjects, stubCounter{}, log)
	auditor := audit.NewRecorder(s.auditStore, log)
	failing := NewService(newStubProvider(), s.challenges, 5*time.Minute, trustSvc, auditor, s.notifier, log)

	_, err := failing.RequestChallenge(context.Background(), s.subID, validIDNumber)
	s.True(dErrors.HasCode(err, dErrors.CodeProviderUnavailable))

	sub, findErr := s.subjects.FindByID(context.Background(), s.subID)
	s.Require().NoError(findErr)
	s.Equal(id.StateUnverified, sub.State)
	s.Empty(sub.TrackEvents)

	entries, listErr := s.auditStore.ListBySubject(context.Background(), s.subID)
	s.Require().NoError(listErr)
	s.Empty(entries, "failed requests leave no audit trace")
}
