// Package notify is the engine's outbound notification port. Delivery is an
// external collaborator; the engine only states what happened to whom.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	id "veristay/pkg/domain"
)

// Event names a notification template on the delivery side.
type Event string

const (
	EventDocumentUnderReview Event = "document_under_review"
	EventDocumentVerified    Event = "document_verified"
	EventDocumentRejected    Event = "document_rejected"
	EventEmailEscalated      Event = "email_verification_escalated"
	EventEmailApproved       Event = "email_verification_approved"
	EventEmailRejected       Event = "email_verification_rejected"
	EventAadhaarVerified     Event = "aadhaar_verified"
)

// Notifier delivers events to subjects and to the admin pool. Both calls are
// best-effort from the engine's perspective; failures must not fail the
// transition that triggered them.
type Notifier interface {
	NotifySubject(ctx context.Context, subjectID id.SubjectID, event Event, data map[string]string) error
	// NotifyAdmins fans out to every active admin (email escalations).
	NotifyAdmins(ctx context.Context, event Event, data map[string]string) error
}

// LogNotifier writes notifications to the structured log. Development default
// and the fallback when no delivery backend is wired.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifySubject(_ context.Context, subjectID id.SubjectID, event Event, data map[string]string) error {
	n.log.Info().
		Str("subject_id", subjectID.String()).
		Str("event", string(event)).
		Interface("data", data).
		Msg("subject notification")
	return nil
}

func (n *LogNotifier) NotifyAdmins(_ context.Context, event Event, data map[string]string) error {
	n.log.Info().
		Str("event", string(event)).
		Interface("data", data).
		Msg("admin notification fan-out")
	return nil
}
