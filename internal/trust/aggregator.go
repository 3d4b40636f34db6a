// Package trust derives the one canonical verification state per subject
// from the ordered log of track events, and owns the only write path for it.
package trust

import (
	id "veristay/pkg/domain"
)

// Derive folds the ordered event log into the canonical state.
//
// The merge policy is last-writer-wins over actions, not a monotonic join:
// an admin decision on an identity document or an email overwrites whatever
// state came before it, even a stronger one. This override behavior is
// product intent (admins must be able to pull trust), so Derive must never be
// "corrected" into a lattice where states only ever increase.
func Derive(events []id.TrackEvent) id.VerificationState {
	state := id.StateUnverified
	for _, ev := range events {
		state = apply(state, ev)
	}
	return state
}

func apply(current id.VerificationState, ev id.TrackEvent) id.VerificationState {
	switch ev.Kind {
	case id.EventDocumentSubmitted, id.EventDocumentReverify:
		// A fresh upload marks progress but never downgrades a positively
		// verified subject. It does clear a previous failure: reverification
		// puts the subject back into the pipeline.
		switch current {
		case id.StateVerifiedStudent, id.StateVerifiedIntern, id.StateAadhaarVerified:
			return current
		}
		return id.StateDocumentUploaded

	case id.EventDocumentVerified:
		// Only identity documents drive the student/intern distinction;
		// address and property decisions live in the sub-records alone.
		if ev.Category != id.CategoryIdentity {
			return current
		}
		if ev.StudentProof {
			return id.StateVerifiedStudent
		}
		return id.StateVerifiedIntern

	case id.EventDocumentRejected:
		if ev.Category != id.CategoryIdentity {
			return current
		}
		return id.StateVerificationFailed

	case id.EventEmailConfirmed:
		return id.StateEmailVerified

	case id.EventEmailAutoApproved:
		return id.StateVerifiedStudent

	case id.EventEmailEscalated:
		return id.StateEmailPendingAdmin

	case id.EventEmailAdminApproved:
		return id.StateVerifiedStudent

	case id.EventEmailAdminRejected:
		return id.StateVerificationFailed

	case id.EventAadhaarOTPVerified:
		return id.StateAadhaarVerified
	}
	return current
}
