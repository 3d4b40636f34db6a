//go:build integration

package collegemail_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veristay/internal/collegemail"
	platformpostgres "veristay/internal/platform/postgres"
	"veristay/internal/subject"
	id "veristay/pkg/domain"
	"veristay/pkg/platform/sentinel"
	"veristay/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	defer pg.Container.Terminate(context.Background())
	require.NoError(t, platformpostgres.Migrate(context.Background(), pg.DB))

	ctx := context.Background()
	owner := id.NewSubjectID()
	subjects := subject.NewPostgresStore(pg.DB)
	require.NoError(t, subjects.Create(ctx, &subject.Subject{ID: owner, State: id.StateUnverified}))

	store := collegemail.NewPostgresStore(pg.DB)

	rec := &collegemail.Record{
		Token:        "tok-1",
		OwnerID:      owner,
		ClaimedEmail: "intern@acmecorp.com",
		Domain:       "acmecorp.com",
		Status:       collegemail.StatusRequested,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, store.Create(ctx, rec))

	t.Run("round trip", func(t *testing.T) {
		found, err := store.FindByToken(ctx, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, owner, found.OwnerID)
		assert.Equal(t, collegemail.StatusRequested, found.Status)
		assert.False(t, found.Verified)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := store.FindByToken(ctx, "nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("mark verified is first-confirm-once", func(t *testing.T) {
		now := time.Now()
		got, first, err := store.MarkVerified(ctx, "tok-1", collegemail.StatusPendingAdmin, now)
		require.NoError(t, err)
		assert.True(t, first)
		assert.True(t, got.Verified)
		assert.Equal(t, collegemail.StatusPendingAdmin, got.Status)

		again, first, err := store.MarkVerified(ctx, "tok-1", collegemail.StatusPendingAdmin, now)
		require.NoError(t, err)
		assert.False(t, first, "second confirm must not report first")
		assert.True(t, again.Verified)
	})

	t.Run("find pending admin returns latest", func(t *testing.T) {
		found, err := store.FindPendingAdmin(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", found.Token)

		_, err = store.FindPendingAdmin(ctx, id.NewSubjectID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("admin verdict update", func(t *testing.T) {
		found, err := store.FindByToken(ctx, "tok-1")
		require.NoError(t, err)
		found.Status = collegemail.StatusAdminApproved
		found.DecidedBy = id.AdminID(id.NewSubjectID())
		require.NoError(t, store.Update(ctx, found, collegemail.StatusPendingAdmin))

		again, err := store.FindByToken(ctx, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, collegemail.StatusAdminApproved, again.Status)
		assert.Equal(t, found.DecidedBy, again.DecidedBy)

		_, err = store.FindPendingAdmin(ctx, owner)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("stale guarded write conflicts", func(t *testing.T) {
		found, err := store.FindByToken(ctx, "tok-1")
		require.NoError(t, err)

		// The record is already admin_approved; a writer that read it
		// while pending must not overwrite the verdict.
		found.Status = collegemail.StatusAdminRejected
		found.RejectionReason = "too late"
		err = store.Update(ctx, found, collegemail.StatusPendingAdmin)
		assert.ErrorIs(t, err, sentinel.ErrConflict)

		again, err := store.FindByToken(ctx, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, collegemail.StatusAdminApproved, again.Status)
		assert.Empty(t, again.RejectionReason)
	})
}
