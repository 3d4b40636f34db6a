// Package subject holds the user whose trust status is evaluated, with the
// three per-track sub-records and the canonical verification state. The state
// field is written exclusively by the aggregator in internal/trust.
package subject

import (
	"time"

	id "veristay/pkg/domain"
)

// SubRecord tracks one evidence-backed verification facet.
type SubRecord struct {
	Verified    bool       `json:"verified"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	EvidenceRef string     `json:"evidence_ref,omitempty"`
}

// AadhaarRecord tracks the OTP-track outcome. Only the provider's opaque
// reference is kept; the raw national ID number is never stored.
type AadhaarRecord struct {
	Verified    bool       `json:"verified"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	ProviderRef string     `json:"provider_ref,omitempty"`
}

// Subject is the user under verification.
type Subject struct {
	ID    id.SubjectID
	Email string
	// IsOwner marks property owners, the only subjects with a property
	// sub-record in play.
	IsOwner bool

	Identity SubRecord
	Address  SubRecord
	Property SubRecord
	Aadhaar  AadhaarRecord

	// State is derived; see trust.Derive.
	State id.VerificationState

	// TrackEvents is the ordered per-subject event log the aggregator folds.
	TrackEvents []id.TrackEvent

	// Version supports per-subject optimistic concurrency. Stores reject
	// stale writes with sentinel.ErrConflict.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so concurrent readers never alias the event log.
func (s *Subject) Clone() *Subject {
	out := *s
	out.TrackEvents = make([]id.TrackEvent, len(s.TrackEvents))
	copy(out.TrackEvents, s.TrackEvents)
	return &out
}
