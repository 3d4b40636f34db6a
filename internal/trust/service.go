package trust

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"veristay/internal/subject"
	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/sentinel"
	"veristay/pkg/requestcontext"
)

// maxApplyAttempts bounds the optimistic-concurrency retry loop. Conflicts
// only occur when two tracks mutate the same subject at once, so a small
// budget is plenty.
const maxApplyAttempts = 5

var tracer = otel.Tracer("veristay/internal/trust")

// DocumentCounter reports a subject's documents grouped by review status.
// Implemented by the document stores; injected so trust does not import the
// document package.
type DocumentCounter interface {
	CountByStatus(ctx context.Context, subjectID id.SubjectID) (map[id.DocumentStatus]int, error)
}

// Service is the single write path for subject state. Every track routes its
// sub-record mutation through Apply so the recompute and the mutation land in
// one versioned write.
type Service struct {
	subjects subject.Store
	counts   DocumentCounter
	log      zerolog.Logger
}

func NewService(subjects subject.Store, counts DocumentCounter, log zerolog.Logger) *Service {
	return &Service{subjects: subjects, counts: counts, log: log}
}

// Apply loads the subject, runs mutate on it, appends ev to the event log,
// rederives the canonical state, and saves under the subject's version.
// Stale writes retry with a fresh load; per-subject serialization therefore
// holds without any in-process lock.
func (s *Service) Apply(ctx context.Context, subjectID id.SubjectID, ev id.TrackEvent, mutate func(*subject.Subject) error) (*subject.Subject, error) {
	ctx, span := tracer.Start(ctx, "trust.apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("subject.id", subjectID.String()),
		attribute.String("event.kind", string(ev.Kind)),
	)

	if ev.At.IsZero() {
		ev.At = requestcontext.Now(ctx)
	}

	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		if attempt > 0 {
			applyRetries.Inc()
		}

		sub, err := s.subjects.FindByID(ctx, subjectID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "subject not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load subject")
		}

		if mutate != nil {
			if err := mutate(sub); err != nil {
				return nil, err
			}
		}
		sub.TrackEvents = append(sub.TrackEvents, ev)

		previous := sub.State
		sub.State = Derive(sub.TrackEvents)

		err = s.subjects.Update(ctx, sub)
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "subject not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save subject")
		}

		if sub.State != previous {
			stateTransitions.WithLabelValues(string(sub.State)).Inc()
			s.log.Info().
				Str("subject_id", subjectID.String()).
				Str("event", string(ev.Kind)).
				Str("from", string(previous)).
				Str("to", string(sub.State)).
				Msg("verification state changed")
		}
		return sub, nil
	}

	applyConflicts.Inc()
	return nil, dErrors.New(dErrors.CodeTimeout, "subject update contended, retry budget exhausted")
}

// TrackStatus is one sub-record's view in the status report.
type TrackStatus struct {
	Verified    bool       `json:"verified"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	EvidenceRef string     `json:"evidence_ref,omitempty"`
}

// StatusReport is the exposed verification status for one subject.
type StatusReport struct {
	SubjectID id.SubjectID            `json:"subject_id"`
	Identity  TrackStatus             `json:"identity"`
	Address   TrackStatus             `json:"address"`
	Property  *TrackStatus            `json:"property,omitempty"`
	Aadhaar   bool                    `json:"aadhaar_verified"`
	Overall   id.VerificationState    `json:"overall"`
	Counts    map[id.DocumentStatus]int `json:"counts"`
}

// Status assembles the canonical view of a subject's verification standing.
func (s *Service) Status(ctx context.Context, subjectID id.SubjectID) (StatusReport, error) {
	ctx, span := tracer.Start(ctx, "trust.status")
	defer span.End()

	sub, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return StatusReport{}, dErrors.Wrap(err, dErrors.CodeNotFound, "subject not found")
		}
		return StatusReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "load subject")
	}

	counts, err := s.counts.CountByStatus(ctx, subjectID)
	if err != nil {
		return StatusReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "count documents")
	}

	report := StatusReport{
		SubjectID: subjectID,
		Identity:  trackStatus(sub.Identity),
		Address:   trackStatus(sub.Address),
		Aadhaar:   sub.Aadhaar.Verified,
		Overall:   sub.State,
		Counts:    counts,
	}
	if sub.IsOwner {
		prop := trackStatus(sub.Property)
		report.Property = &prop
	}
	return report, nil
}

func trackStatus(r subject.SubRecord) TrackStatus {
	return TrackStatus{
		Verified:    r.Verified,
		VerifiedAt:  r.VerifiedAt,
		EvidenceRef: r.EvidenceRef,
	}
}
