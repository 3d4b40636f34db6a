package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"veristay/pkg/requestcontext"
)

// Recorder writes entries to the store and fans out to optional sinks.
// Recording is best-effort: a failed write is logged and counted but never
// propagated, so the primary transition it describes is never blocked.
type Recorder struct {
	store Store
	sinks []Sink
	log   zerolog.Logger
}

func NewRecorder(store Store, log zerolog.Logger, sinks ...Sink) *Recorder {
	return &Recorder{store: store, sinks: sinks, log: log}
}

// Record fills request-scoped fields from context, stamps the entry, and
// persists it. Call after the primary state transition has been committed.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.RequestIP == "" {
		entry.RequestIP = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}

	entriesRecorded.WithLabelValues(string(entry.Action)).Inc()

	if err := r.store.Append(ctx, entry); err != nil {
		writeFailures.WithLabelValues("store").Inc()
		r.log.Warn().Err(err).
			Str("action", string(entry.Action)).
			Str("subject_id", entry.SubjectID.String()).
			Msg("audit store append failed")
	}
	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, entry); err != nil {
			writeFailures.WithLabelValues("sink").Inc()
			r.log.Warn().Err(err).
				Str("action", string(entry.Action)).
				Msg("audit sink publish failed")
		}
	}
}
