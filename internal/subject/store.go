package subject

import (
	"context"

	id "veristay/pkg/domain"
)

// Store persists subjects with per-id optimistic versioning.
//
// Error contract:
// - FindByID returns sentinel.ErrNotFound (wrapped) for unknown subjects.
// - Update compares Subject.Version against the stored row and returns
//   sentinel.ErrConflict on a stale write; on success the stored version is
//   incremented. Callers retry via trust.Service.
type Store interface {
	Create(ctx context.Context, s *Subject) error
	FindByID(ctx context.Context, subjectID id.SubjectID) (*Subject, error)
	Update(ctx context.Context, s *Subject) error
}
