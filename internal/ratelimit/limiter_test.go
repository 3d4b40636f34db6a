package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_EnforcesLimit(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := store.Allow(ctx, "subject-a", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := store.Allow(ctx, "subject-a", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.False(t, res.ResetAt.IsZero())
}

func TestInMemoryStore_KeysAreIndependent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Allow(ctx, "subject-a", 1, time.Minute)
	require.NoError(t, err)

	res, err := store.Allow(ctx, "subject-b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestInMemoryStore_WindowSlides(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Allow(ctx, "subject-a", 1, 30*time.Millisecond)
	require.NoError(t, err)

	res, err := store.Allow(ctx, "subject-a", 1, 30*time.Millisecond)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	time.Sleep(40 * time.Millisecond)

	res, err = store.Allow(ctx, "subject-a", 1, 30*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestInMemoryStore_Reset(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Allow(ctx, "subject-a", 1, time.Minute)
	require.NoError(t, err)

	store.Reset("subject-a")

	res, err := store.Allow(ctx, "subject-a", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisStore_EnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := store.Allow(ctx, "subject-a", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := store.Allow(ctx, "subject-a", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// The window expires and the bucket refills.
	mr.FastForward(2 * time.Minute)
	res, err = store.Allow(ctx, "subject-a", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimitMiddleware_RejectsWith429(t *testing.T) {
	store := NewInMemoryStore()
	byPath := func(r *http.Request) string { return r.URL.Path }

	handler := Limit(store, "test", 2, time.Minute, byPath, zerolog.Nop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestLimitMiddleware_EmptyKeySkips(t *testing.T) {
	store := NewInMemoryStore()
	noKey := func(*http.Request) string { return "" }

	handler := Limit(store, "test", 1, time.Minute, noKey, zerolog.Nop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, context.DeadlineExceeded
}

func TestLimitMiddleware_FailsOpen(t *testing.T) {
	byPath := func(r *http.Request) string { return r.URL.Path }

	handler := Limit(failingStore{}, "test", 1, time.Minute, byPath, zerolog.Nop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
