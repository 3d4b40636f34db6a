// Package ratelimit throttles the abuse-prone issuance endpoints: OTP
// challenges and email verification tokens. Limits are per subject, sliding
// window in memory or fixed window in Redis when one is configured.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one Allow check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Store answers whether a keyed request fits inside its window. Allow both
// checks and counts: a denied request is not counted.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// InMemoryStore is a sliding-window limiter for single-process deployments.
type InMemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*window
}

type window struct {
	timestamps []time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{buckets: make(map[string]*window)}
}

func (s *InMemoryStore) Allow(ctx context.Context, key string, limit int, dur time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w := s.buckets[key]
	if w == nil {
		w = &window{}
		s.buckets[key] = w
	}
	w.trim(now.Add(-dur))

	if len(w.timestamps) >= limit {
		return Result{
			Allowed: false,
			ResetAt: w.timestamps[0].Add(dur),
			Limit:   limit,
		}, nil
	}

	w.timestamps = append(w.timestamps, now)
	return Result{
		Allowed:   true,
		Remaining: limit - len(w.timestamps),
		ResetAt:   w.timestamps[0].Add(dur),
		Limit:     limit,
	}, nil
}

// Reset clears the window for a key.
func (s *InMemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
}

func (w *window) trim(cutoff time.Time) {
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept
}
