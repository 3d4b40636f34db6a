package trust

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"veristay/internal/subject"
	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
)

type stubCounter struct {
	counts map[id.DocumentStatus]int
}

func (c stubCounter) CountByStatus(context.Context, id.SubjectID) (map[id.DocumentStatus]int, error) {
	return c.counts, nil
}

type ServiceSuite struct {
	suite.Suite
	subjects *subject.InMemoryStore
	service  *Service
	subID    id.SubjectID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.subjects = subject.NewInMemoryStore()
	s.service = NewService(s.subjects, stubCounter{counts: map[id.DocumentStatus]int{}}, zerolog.Nop())

	s.subID = id.NewSubjectID()
	sub := &subject.Subject{ID: s.subID, State: id.StateUnverified, IsOwner: false}
	s.Require().NoError(s.subjects.Create(context.Background(), sub))
}

func (s *ServiceSuite) TestApplyRederivesState() {
	sub, err := s.service.Apply(context.Background(), s.subID,
		id.TrackEvent{Kind: id.EventDocumentSubmitted, Category: id.CategoryIdentity, StudentProof: true}, nil)
	s.Require().NoError(err)
	s.Equal(id.StateDocumentUploaded, sub.State)
	s.Len(sub.TrackEvents, 1)
	s.False(sub.TrackEvents[0].At.IsZero())
}

func (s *ServiceSuite) TestApplyRunsMutation() {
	sub, err := s.service.Apply(context.Background(), s.subID,
		id.TrackEvent{Kind: id.EventAadhaarOTPVerified}, func(sub *subject.Subject) error {
			sub.Aadhaar.Verified = true
			return nil
		})
	s.Require().NoError(err)
	s.True(sub.Aadhaar.Verified)
	s.Equal(id.StateAadhaarVerified, sub.State)
}

func (s *ServiceSuite) TestApplyMutationErrorAborts() {
	wantErr := dErrors.New(dErrors.CodeInvalidInput, "bad mutation")
	_, err := s.service.Apply(context.Background(), s.subID,
		id.TrackEvent{Kind: id.EventEmailConfirmed}, func(*subject.Subject) error {
			return wantErr
		})
	s.ErrorIs(err, wantErr)

	sub, findErr := s.subjects.FindByID(context.Background(), s.subID)
	s.Require().NoError(findErr)
	s.Empty(sub.TrackEvents)
	s.Equal(id.StateUnverified, sub.State)
}

func (s *ServiceSuite) TestApplyUnknownSubject() {
	_, err := s.service.Apply(context.Background(), id.NewSubjectID(),
		id.TrackEvent{Kind: id.EventEmailConfirmed}, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// Concurrent applies on the same subject must all land: the version check
// forces losers to reload and retry, so no event is dropped.
func (s *ServiceSuite) TestApplyConcurrentWritersAllLand() {
	const writers = 8

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			_, err := s.service.Apply(ctx, s.subID,
				id.TrackEvent{Kind: id.EventDocumentSubmitted, Category: id.CategoryAddress}, nil)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	sub, err := s.subjects.FindByID(context.Background(), s.subID)
	s.Require().NoError(err)
	s.Len(sub.TrackEvents, writers)
	s.Equal(id.StateDocumentUploaded, sub.State)
	s.Equal(int64(writers+1), sub.Version)
}

func (s *ServiceSuite) TestStatusReportsOwnerProperty() {
	ctx := context.Background()

	report, err := s.service.Status(ctx, s.subID)
	s.Require().NoError(err)
	s.Nil(report.Property, "non-owners have no property track")
	s.Equal(id.StateUnverified, report.Overall)

	ownerID := id.NewSubjectID()
	owner := &subject.Subject{ID: ownerID, State: id.StateUnverified, IsOwner: true}
	s.Require().NoError(s.subjects.Create(ctx, owner))

	report, err = s.service.Status(ctx, ownerID)
	s.Require().NoError(err)
	s.NotNil(report.Property)
}

func (s *ServiceSuite) TestStatusUnknownSubject() {
	_, err := s.service.Status(context.Background(), id.NewSubjectID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
