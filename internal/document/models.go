// Package document implements the admin-reviewed evidence track: a
// per-document state machine driven by admin decisions and owner
// reverification requests.
package document

import (
	"time"

	id "veristay/pkg/domain"
)

// Document is one piece of submitted evidence, owned by exactly one subject.
type Document struct {
	ID       id.DocumentID
	OwnerID  id.SubjectID
	Type     id.DocumentType
	Category id.DocumentCategory
	Status   id.DocumentStatus

	// EvidenceRef points at the stored file; file transport is external.
	EvidenceRef string
	// PropertyRef optionally links owner documents to a property listing.
	PropertyRef string

	ReviewerID      id.AdminID
	ReviewedAt      *time.Time
	RejectionReason string

	// ExpiresAt is the document's own validity (e.g. a license expiry), not
	// a review deadline. Nil means the document does not expire.
	ExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the document's own validity has lapsed.
func (d *Document) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// DecisionResult reports what actually happened to a decided document. The
// engine never silently rewrites an admin's verdict: when an expired document
// forces a rejection, SystemOverride says so.
type DecisionResult struct {
	Document       *Document
	Outcome        id.DocumentStatus
	SystemOverride bool
	Reason         string
	State          id.VerificationState
}
