// Package memory keeps audit entries in process memory for tests and
// development. Append-only by construction: entries are copied in and out.
package memory

import (
	"context"
	"sync"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/audit"
)

type Store struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) ListBySubject(_ context.Context, subject id.SubjectID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].SubjectID == subject {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *Store) ListBySubjectActions(_ context.Context, subject id.SubjectID, actions []audit.Action) ([]audit.Entry, error) {
	wanted := make(map[audit.Action]bool, len(actions))
	for _, a := range actions {
		wanted[a] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.SubjectID == subject && wanted[e.Action] {
			out = append(out, e)
		}
	}
	return out, nil
}
