package document

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/sentinel"
)

// InMemoryStore keeps documents in process memory for tests and development.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]*Document)}
}

func (s *InMemoryStore) Create(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	stored := *doc
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.docs[doc.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.docs[docID]; ok {
		out := *doc
		return &out, nil
	}
	return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) Update(_ context.Context, doc *Document, from id.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[doc.ID]
	if !ok {
		return fmt.Errorf("document %s: %w", doc.ID, sentinel.ErrNotFound)
	}
	if current.Status != from {
		return fmt.Errorf("document %s is %s: %w", doc.ID, current.Status, sentinel.ErrConflict)
	}
	stored := *doc
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = time.Now()
	s.docs[doc.ID] = &stored
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, docID id.DocumentID, from id.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[docID]
	if !ok {
		return fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	if current.Status != from {
		return fmt.Errorf("document %s is %s: %w", docID, current.Status, sentinel.ErrConflict)
	}
	delete(s.docs, docID)
	return nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner id.SubjectID) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Document
	for _, doc := range s.docs {
		if doc.OwnerID == owner {
			copied := *doc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context, owner id.SubjectID) (map[id.DocumentStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[id.DocumentStatus]int)
	for _, doc := range s.docs {
		if doc.OwnerID == owner {
			counts[doc.Status]++
		}
	}
	return counts, nil
}
