package domain

import "time"

// TrackEventKind names a state-changing outcome on one of the three
// verification tracks. The aggregator folds the ordered event log to derive
// the canonical state, so every kind here must have a deterministic effect.
type TrackEventKind string

const (
	EventDocumentSubmitted   TrackEventKind = "document_submitted"
	EventDocumentVerified    TrackEventKind = "document_verified"
	EventDocumentRejected    TrackEventKind = "document_rejected"
	EventDocumentReverify    TrackEventKind = "document_reverify_requested"
	EventEmailAutoApproved   TrackEventKind = "email_auto_approved"
	EventEmailConfirmed      TrackEventKind = "email_confirmed"
	EventEmailEscalated      TrackEventKind = "email_escalated"
	EventEmailAdminApproved  TrackEventKind = "email_admin_approved"
	EventEmailAdminRejected  TrackEventKind = "email_admin_rejected"
	EventAadhaarOTPVerified  TrackEventKind = "aadhaar_otp_verified"
)

// TrackEvent is one entry of the per-subject ordered event log.
type TrackEvent struct {
	Kind TrackEventKind `json:"kind"`
	At   time.Time      `json:"at"`

	// Category and StudentProof qualify document events: the aggregator only
	// derives the student/intern distinction from identity documents.
	Category     DocumentCategory `json:"category,omitempty"`
	StudentProof bool             `json:"student_proof,omitempty"`
}
