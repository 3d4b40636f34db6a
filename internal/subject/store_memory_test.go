package subject

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) seed() *Subject {
	sub := &Subject{ID: id.NewSubjectID(), State: id.StateUnverified}
	s.Require().NoError(s.store.Create(context.Background(), sub))
	return sub
}

func (s *InMemoryStoreSuite) TestCreateSetsVersion() {
	sub := s.seed()
	s.Equal(int64(1), sub.Version)
}

func (s *InMemoryStoreSuite) TestCreateDuplicate() {
	sub := s.seed()
	err := s.store.Create(context.Background(), &Subject{ID: sub.ID})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestFindReturnsCopy() {
	sub := s.seed()

	found, err := s.store.FindByID(context.Background(), sub.ID)
	s.Require().NoError(err)
	found.State = id.StateVerifiedStudent
	found.TrackEvents = append(found.TrackEvents, id.TrackEvent{Kind: id.EventEmailConfirmed})

	again, err := s.store.FindByID(context.Background(), sub.ID)
	s.Require().NoError(err)
	s.Equal(id.StateUnverified, again.State)
	s.Empty(again.TrackEvents)
}

func (s *InMemoryStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewSubjectID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpdateBumpsVersion() {
	sub := s.seed()
	sub.State = id.StateDocumentUploaded
	s.Require().NoError(s.store.Update(context.Background(), sub))
	s.Equal(int64(2), sub.Version)

	found, err := s.store.FindByID(context.Background(), sub.ID)
	s.Require().NoError(err)
	s.Equal(id.StateDocumentUploaded, found.State)
	s.Equal(int64(2), found.Version)
}

// A stale writer must be rejected so the trust service reloads and refolds
// instead of clobbering a concurrent track's mutation.
func (s *InMemoryStoreSuite) TestUpdateStaleVersionConflicts() {
	sub := s.seed()

	first, err := s.store.FindByID(context.Background(), sub.ID)
	s.Require().NoError(err)
	second, err := s.store.FindByID(context.Background(), sub.ID)
	s.Require().NoError(err)

	first.State = id.StateEmailVerified
	s.Require().NoError(s.store.Update(context.Background(), first))

	second.State = id.StateAadhaarVerified
	err = s.store.Update(context.Background(), second)
	s.ErrorIs(err, sentinel.ErrConflict)

	found, err := s.store.FindByID(context.Background(), sub.ID)
	s.Require().NoError(err)
	s.Equal(id.StateEmailVerified, found.State, "loser must not overwrite the winner")
}

func (s *InMemoryStoreSuite) TestUpdateMissing() {
	err := s.store.Update(context.Background(), &Subject{ID: id.NewSubjectID(), Version: 1})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func TestCloneIsDeep(t *testing.T) {
	sub := &Subject{
		ID:          id.NewSubjectID(),
		TrackEvents: []id.TrackEvent{{Kind: id.EventEmailConfirmed}},
	}
	cp := sub.Clone()
	cp.TrackEvents[0].Kind = id.EventEmailAdminRejected

	require.Equal(t, id.EventEmailConfirmed, sub.TrackEvents[0].Kind)
}
