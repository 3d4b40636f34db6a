package domain

import dErrors "veristay/pkg/domain-errors"

// VerificationState is the single canonical trust status derived from the
// latest outcomes of all three verification tracks. It is always computed by
// the aggregator in internal/trust and never hand-set elsewhere.
type VerificationState string

const (
	StateUnverified VerificationState = "unverified"

	// StateEmailVerified is reached when an institutional email is confirmed
	// and domain classification is disabled (no allow-list configured).
	StateEmailVerified VerificationState = "email_verified"

	// StateEmailPendingAdmin marks a confirmed email whose domain did not
	// match the academic allow-list and is awaiting an admin decision.
	StateEmailPendingAdmin VerificationState = "email_verified_pending_admin"

	// StateDocumentUploaded marks a subject with at least one document in the
	// review pipeline and no stronger outcome yet.
	StateDocumentUploaded VerificationState = "document_uploaded"

	StateVerifiedStudent    VerificationState = "verified_student"
	StateVerifiedIntern     VerificationState = "verified_intern"
	StateAadhaarVerified    VerificationState = "aadhaar_verified"
	StateVerificationFailed VerificationState = "verification_failed"
)

var validStates = map[VerificationState]bool{
	StateUnverified:         true,
	StateEmailVerified:      true,
	StateEmailPendingAdmin:  true,
	StateDocumentUploaded:   true,
	StateVerifiedStudent:    true,
	StateVerifiedIntern:     true,
	StateAadhaarVerified:    true,
	StateVerificationFailed: true,
}

// IsValid reports whether the state is one of the supported values.
func (s VerificationState) IsValid() bool { return validStates[s] }

// Verified reports whether the state represents a positively verified subject.
func (s VerificationState) Verified() bool {
	switch s {
	case StateVerifiedStudent, StateVerifiedIntern, StateAadhaarVerified:
		return true
	}
	return false
}

// ParseVerificationState constructs a VerificationState from external input.
func ParseVerificationState(s string) (VerificationState, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "verification state cannot be empty")
	}
	st := VerificationState(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported verification state: "+s)
	}
	return st, nil
}
