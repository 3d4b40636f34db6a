package audit

import (
	"context"

	id "veristay/pkg/domain"
)

// Store persists audit entries. Implementations must be append-only:
// Append and read methods only, no mutation surface.
//
// Error contract: Append returns wrapped infrastructure errors; ListBySubject
// returns an empty slice (not an error) when the subject has no entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListBySubject(ctx context.Context, subject id.SubjectID) ([]Entry, error)
	// ListBySubjectActions filters to the given actions, newest first.
	ListBySubjectActions(ctx context.Context, subject id.SubjectID, actions []Action) ([]Entry, error)
}

// Sink receives a copy of every recorded entry for observability fan-out
// (e.g. the Kafka publisher). Sinks are best-effort by contract.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}
