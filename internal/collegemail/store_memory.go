package collegemail

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/sentinel"
)

// InMemoryStore keeps verification records in a mutex-guarded map.
// Development and test backend.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

func (s *InMemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.Token]; exists {
		return fmt.Errorf("email verification token: %w", sentinel.ErrConflict)
	}
	s.records[rec.Token] = rec.clone()
	return nil
}

func (s *InMemoryStore) FindByToken(_ context.Context, token string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[token]
	if !ok {
		return nil, fmt.Errorf("email verification token: %w", sentinel.ErrNotFound)
	}
	return rec.clone(), nil
}

func (s *InMemoryStore) MarkVerified(_ context.Context, token string, status Status, at time.Time) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok {
		return nil, false, fmt.Errorf("email verification token: %w", sentinel.ErrNotFound)
	}
	if rec.Verified {
		return rec.clone(), false, nil
	}
	rec.Verified = true
	rec.VerifiedAt = &at
	rec.Status = status
	rec.UpdatedAt = at
	return rec.clone(), true, nil
}

func (s *InMemoryStore) Update(_ context.Context, rec *Record, from Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[rec.Token]
	if !ok {
		return fmt.Errorf("email verification token: %w", sentinel.ErrNotFound)
	}
	if current.Status != from {
		return fmt.Errorf("email verification is %s: %w", current.Status, sentinel.ErrConflict)
	}
	s.records[rec.Token] = rec.clone()
	return nil
}

func (s *InMemoryStore) FindPendingAdmin(_ context.Context, owner id.SubjectID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Record
	for _, rec := range s.records {
		if rec.OwnerID != owner || rec.Status != StatusPendingAdmin {
			continue
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("pending email verification: %w", sentinel.ErrNotFound)
	}
	return latest.clone(), nil
}
