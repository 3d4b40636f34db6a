package subject

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/sentinel"
)

// InMemoryStore keeps subjects in process memory for tests and development.
// Version checks behave exactly like the postgres store so concurrency tests
// exercise the same contract.
type InMemoryStore struct {
	mu       sync.RWMutex
	subjects map[id.SubjectID]*Subject
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{subjects: make(map[id.SubjectID]*Subject)}
}

func (s *InMemoryStore) Create(_ context.Context, sub *Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[sub.ID]; ok {
		return fmt.Errorf("subject %s: %w", sub.ID, sentinel.ErrConflict)
	}
	now := time.Now()
	stored := sub.Clone()
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.subjects[sub.ID] = stored
	sub.Version = stored.Version
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, subjectID id.SubjectID) (*Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.subjects[subjectID]; ok {
		return sub.Clone(), nil
	}
	return nil, fmt.Errorf("subject %s: %w", subjectID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) Update(_ context.Context, sub *Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.subjects[sub.ID]
	if !ok {
		return fmt.Errorf("subject %s: %w", sub.ID, sentinel.ErrNotFound)
	}
	if current.Version != sub.Version {
		return fmt.Errorf("subject %s version %d: %w", sub.ID, sub.Version, sentinel.ErrConflict)
	}
	stored := sub.Clone()
	stored.Version = current.Version + 1
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = time.Now()
	s.subjects[sub.ID] = stored
	sub.Version = stored.Version
	return nil
}
