package document

import (
	"context"

	id "veristay/pkg/domain"
)

// Store persists documents.
//
// Error contract: FindByID, Update, and Delete return sentinel.ErrNotFound
// (wrapped) for unknown ids. ListByOwner returns an empty slice for subjects
// with no documents. CountByStatus feeds the trust status report.
//
// Update and Delete are status-guarded: the write lands only while the
// stored row still carries the status the caller read (from), otherwise
// they return sentinel.ErrConflict. Two admins racing on one pending
// document therefore produce exactly one committed verdict.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*Document, error)
	Update(ctx context.Context, doc *Document, from id.DocumentStatus) error
	Delete(ctx context.Context, docID id.DocumentID, from id.DocumentStatus) error
	ListByOwner(ctx context.Context, owner id.SubjectID) ([]*Document, error)
	CountByStatus(ctx context.Context, owner id.SubjectID) (map[id.DocumentStatus]int, error)
}
