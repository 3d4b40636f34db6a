// Package audit is the append-only record of every state-changing action in
// the verification engine. Entries are immutable: the package exposes no
// update or delete surface, and a failed write never rolls back the primary
// transition it describes.
package audit

import (
	"time"

	id "veristay/pkg/domain"
)

// Action names a state-changing operation on one of the verification tracks.
type Action string

const (
	ActionSubmitDocument        Action = "submit_document"
	ActionReviewDocument        Action = "review_document"
	ActionVerifyDocument        Action = "verify_document"
	ActionRejectDocument        Action = "reject_document"
	ActionRequestReverification Action = "request_reverification"
	ActionDeleteDocument        Action = "delete_document"

	ActionRequestAadhaarOTP Action = "request_aadhaar_otp"
	ActionVerifyAadhaarOTP  Action = "verify_aadhaar_otp"

	ActionRequestEmailVerification Action = "request_email_verification"
	ActionVerifyEmail              Action = "verify_email"
	ActionVerifyEmailPending       Action = "verify_email_pending"
	ActionAdminApproveEmail        Action = "admin_approve_email"
	ActionAdminRejectEmail         Action = "admin_reject_email"
)

// Entry is one immutable audit record. Keep it transport-agnostic so stores
// and sinks can fan out.
type Entry struct {
	ID        string       `json:"id"`
	SubjectID id.SubjectID `json:"subject_id"`
	// ActorID is set when an admin performed the action on the subject's
	// behalf; zero for owner-initiated and system actions.
	ActorID id.AdminID `json:"actor_id,omitempty"`
	Action  Action     `json:"action"`
	Reason  string     `json:"reason,omitempty"`
	// DocumentID links document-track entries to the document they mutate.
	DocumentID id.DocumentID `json:"document_id,omitempty"`
	// ProviderRef is the OTP backend's opaque reference; the raw national ID
	// number never appears here, only its SHA-256 hash in SubjectIDHash.
	ProviderRef   string `json:"provider_ref,omitempty"`
	SubjectIDHash string `json:"subject_id_hash,omitempty"`
	// Token is the email verification token the entry concerns, recorded
	// after consumption.
	Token     string    `json:"token,omitempty"`
	RequestIP string    `json:"request_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
