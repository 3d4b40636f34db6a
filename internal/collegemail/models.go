// Package collegemail implements the institutional email verification track:
// a mailed confirmation link plus domain classification that either approves
// the subject outright or escalates to an admin.
package collegemail

import (
	"time"

	id "veristay/pkg/domain"
)

// Status is the review state of one email verification attempt.
type Status string

const (
	StatusRequested     Status = "requested"
	StatusAutoApproved  Status = "auto_approved"
	StatusPendingAdmin  Status = "pending_admin"
	StatusAdminApproved Status = "admin_approved"
	StatusAdminRejected Status = "admin_rejected"
)

// Record is one verification attempt, keyed by its single-use token.
type Record struct {
	Token        string
	OwnerID      id.SubjectID
	ClaimedEmail string
	// Domain is the lowercased part after the @, captured at request time.
	Domain string

	Status   Status
	Verified bool
	// VerifiedAt is the first successful confirmation; later confirms of the
	// same token are idempotent and do not move it.
	VerifiedAt *time.Time

	DecidedBy       id.AdminID
	RejectionReason string

	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the confirmation window has closed.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r *Record) clone() *Record {
	cp := *r
	if r.VerifiedAt != nil {
		t := *r.VerifiedAt
		cp.VerifiedAt = &t
	}
	return &cp
}
