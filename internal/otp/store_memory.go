package otp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"veristay/pkg/platform/sentinel"
)

// InMemoryChallengeStore holds challenges in process memory. The single
// mutex makes Consume atomic, matching the Redis store's script semantics.
type InMemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

func NewInMemoryChallengeStore() *InMemoryChallengeStore {
	return &InMemoryChallengeStore{challenges: make(map[string]Challenge)}
}

func (s *InMemoryChallengeStore) Save(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.RequestID] = ch
	return nil
}

func (s *InMemoryChallengeStore) Consume(_ context.Context, requestID, code string, now time.Time) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[requestID]
	if !ok {
		return Challenge{}, fmt.Errorf("challenge %s: %w", requestID, sentinel.ErrNotFound)
	}
	if now.After(ch.ExpiresAt) {
		delete(s.challenges, requestID)
		return Challenge{}, fmt.Errorf("challenge %s: %w", requestID, sentinel.ErrExpired)
	}
	if ch.Code != code {
		// Wrong code leaves the challenge in place; the holder may retry
		// with the right one until expiry.
		return Challenge{}, fmt.Errorf("challenge %s: %w", requestID, sentinel.ErrInvalidState)
	}
	delete(s.challenges, requestID)
	return ch, nil
}
