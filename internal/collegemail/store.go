package collegemail

import (
	"context"
	"time"

	id "veristay/pkg/domain"
)

// Store persists email verification records.
//
// FindByToken returns sentinel.ErrNotFound for unknown tokens. MarkVerified
// is the idempotency gate for confirmation: it reports first=true exactly
// once per token, and later calls return the record unchanged with
// first=false. Update is status-guarded: the write lands only while the
// stored record still carries the status the caller read (from), otherwise
// sentinel.ErrConflict — so two admins racing on one escalated record
// produce exactly one committed verdict. It returns sentinel.ErrNotFound
// when the token vanished.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	FindByToken(ctx context.Context, token string) (*Record, error)
	MarkVerified(ctx context.Context, token string, status Status, at time.Time) (rec *Record, first bool, err error)
	Update(ctx context.Context, rec *Record, from Status) error
	// FindPendingAdmin returns the subject's escalated record awaiting an
	// admin verdict, sentinel.ErrNotFound when there is none.
	FindPendingAdmin(ctx context.Context, owner id.SubjectID) (*Record, error)
}
