package document

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"veristay/internal/notify"
	"veristay/internal/subject"
	"veristay/internal/trust"
	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/audit"
	"veristay/pkg/platform/sentinel"
	"veristay/pkg/requestcontext"
)

// expiredRejectionReason is the system-supplied reason stamped on a document
// when an admin verify verdict is overridden by document expiry.
const expiredRejectionReason = "Document expired"

// Service runs the admin-reviewed document track. Document rows carry the
// per-document review state; subject-level consequences are folded in through
// the trust service so both land in one versioned subject write.
type Service struct {
	docs     Store
	trust    *trust.Service
	auditor  *audit.Recorder
	notifier notify.Notifier
	log      zerolog.Logger
}

func NewService(docs Store, trustSvc *trust.Service, auditor *audit.Recorder, notifier notify.Notifier, log zerolog.Logger) *Service {
	return &Service{docs: docs, trust: trustSvc, auditor: auditor, notifier: notifier, log: log}
}

// SubmitInput is a subject's upload of one piece of evidence.
type SubmitInput struct {
	Type        string
	EvidenceRef string
	PropertyRef string
	ExpiresAt   *int64 // unix seconds, optional
}

// Submit records a new document in pending status and folds the submission
// into the owner's verification state. Aadhaar cards are refused outright:
// Aadhaar proof only enters through the OTP track.
func (s *Service) Submit(ctx context.Context, owner id.SubjectID, in SubmitInput) (*Document, id.VerificationState, error) {
	docType, err := id.ParseDocumentType(in.Type)
	if err != nil {
		return nil, "", err
	}
	if docType == id.DocTypeAadhaarCard {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "aadhaar cards are not accepted as documents, use the OTP verification flow")
	}
	if in.EvidenceRef == "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "evidence reference is required")
	}

	now := requestcontext.Now(ctx)
	doc := &Document{
		ID:          id.NewDocumentID(),
		OwnerID:     owner,
		Type:        docType,
		Category:    docType.Category(),
		Status:      id.DocStatusPending,
		EvidenceRef: in.EvidenceRef,
		PropertyRef: in.PropertyRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ExpiresAt != nil {
		t := unixTime(*in.ExpiresAt)
		doc.ExpiresAt = &t
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "store document")
	}

	sub, err := s.trust.Apply(ctx, owner, id.TrackEvent{
		Kind:         id.EventDocumentSubmitted,
		Category:     doc.Category,
		StudentProof: docType.IsStudentProof(),
	}, nil)
	if err != nil {
		return nil, "", err
	}

	submissionsTotal.WithLabelValues(string(doc.Category)).Inc()
	s.auditor.Record(ctx, audit.Entry{
		SubjectID:  owner,
		Action:     audit.ActionSubmitDocument,
		DocumentID: doc.ID,
		Reason:     string(docType),
	})
	return doc, sub.State, nil
}

// MarkUnderReview moves a pending document to under_review, claiming it for
// the acting admin. Review is optional: Decide accepts pending documents too.
func (s *Service) MarkUnderReview(ctx context.Context, docID id.DocumentID) (*Document, error) {
	doc, err := s.findDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.Status != id.DocStatusPending {
		return nil, dErrors.New(dErrors.CodeConflict, "only pending documents can be taken under review")
	}

	now := requestcontext.Now(ctx)
	doc.Status = id.DocStatusUnderReview
	doc.ReviewerID = requestcontext.Actor(ctx)
	doc.UpdatedAt = now
	if err := s.docs.Update(ctx, doc, id.DocStatusPending); err != nil {
		return nil, guardedWriteErr(err, "store document")
	}

	s.auditor.Record(ctx, audit.Entry{
		SubjectID:  doc.OwnerID,
		ActorID:    doc.ReviewerID,
		Action:     audit.ActionReviewDocument,
		DocumentID: doc.ID,
	})
	s.notify(ctx, doc.OwnerID, notify.EventDocumentUnderReview, map[string]string{
		"document_id":   doc.ID.String(),
		"document_type": string(doc.Type),
	})
	return doc, nil
}

// Decide records an admin verdict on a pending or under_review document and
// folds the consequence into the owner's verification state. A verify verdict
// on an expired document is converted to a rejection and flagged as a system
// override in the result.
func (s *Service) Decide(ctx context.Context, docID id.DocumentID, outcome id.DocumentStatus, reason string) (DecisionResult, error) {
	if outcome != id.DocStatusVerified && outcome != id.DocStatusRejected {
		return DecisionResult{}, dErrors.New(dErrors.CodeInvalidInput, "decision outcome must be verified or rejected")
	}
	if outcome == id.DocStatusRejected && reason == "" {
		return DecisionResult{}, dErrors.New(dErrors.CodeInvalidInput, "rejection requires a reason")
	}

	doc, err := s.findDocument(ctx, docID)
	if err != nil {
		return DecisionResult{}, err
	}
	if doc.Status != id.DocStatusPending && doc.Status != id.DocStatusUnderReview {
		return DecisionResult{}, dErrors.New(dErrors.CodeConflict, "document has already been decided")
	}

	now := requestcontext.Now(ctx)
	result := DecisionResult{Outcome: outcome, Reason: reason}
	if outcome == id.DocStatusVerified && doc.Expired(now) {
		expiryOverrides.Inc()
		result.Outcome = id.DocStatusRejected
		result.Reason = expiredRejectionReason
		result.SystemOverride = true
	}

	// The write is guarded by the status we read: of two racing verdicts,
	// exactly one commits, the other surfaces a conflict before any trust
	// fold, audit entry, or notification happens.
	prior := doc.Status
	doc.Status = result.Outcome
	doc.ReviewerID = requestcontext.Actor(ctx)
	doc.ReviewedAt = &now
	doc.RejectionReason = ""
	if result.Outcome == id.DocStatusRejected {
		doc.RejectionReason = result.Reason
	}
	doc.UpdatedAt = now
	if err := s.docs.Update(ctx, doc, prior); err != nil {
		return DecisionResult{}, guardedWriteErr(err, "store document")
	}

	kind := id.EventDocumentVerified
	if result.Outcome == id.DocStatusRejected {
		kind = id.EventDocumentRejected
	}
	sub, err := s.trust.Apply(ctx, doc.OwnerID, id.TrackEvent{
		Kind:         kind,
		Category:     doc.Category,
		StudentProof: doc.Type.IsStudentProof(),
	}, func(sub *subject.Subject) error {
		rec := subRecord(sub, doc.Category)
		if rec == nil {
			return nil
		}
		if result.Outcome == id.DocStatusVerified {
			rec.Verified = true
			rec.VerifiedAt = &now
			rec.EvidenceRef = doc.EvidenceRef
		} else {
			rec.Verified = false
			rec.VerifiedAt = nil
		}
		return nil
	})
	if err != nil {
		return DecisionResult{}, err
	}
	result.Document = doc
	result.State = sub.State

	decisionsTotal.WithLabelValues(string(result.Outcome)).Inc()
	action := audit.ActionVerifyDocument
	event := notify.EventDocumentVerified
	if result.Outcome == id.DocStatusRejected {
		action = audit.ActionRejectDocument
		event = notify.EventDocumentRejected
	}
	s.auditor.Record(ctx, audit.Entry{
		SubjectID:  doc.OwnerID,
		ActorID:    doc.ReviewerID,
		Action:     action,
		DocumentID: doc.ID,
		Reason:     result.Reason,
	})
	s.notify(ctx, doc.OwnerID, event, map[string]string{
		"document_id":   doc.ID.String(),
		"document_type": string(doc.Type),
		"reason":        result.Reason,
	})
	return result, nil
}

// RequestReverification resets a rejected or expired document to pending so
// the review cycle can run again. Only the document's owner may request it.
func (s *Service) RequestReverification(ctx context.Context, requester id.SubjectID, docID id.DocumentID) (*Document, id.VerificationState, error) {
	doc, err := s.findDocument(ctx, docID)
	if err != nil {
		return nil, "", err
	}
	if doc.OwnerID != requester {
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "document belongs to another subject")
	}

	now := requestcontext.Now(ctx)
	if doc.Status != id.DocStatusRejected && !doc.Expired(now) {
		return nil, "", dErrors.New(dErrors.CodeConflict, "only rejected or expired documents can be resubmitted for review")
	}

	prior := doc.Status
	doc.Status = id.DocStatusPending
	doc.ReviewerID = id.AdminID{}
	doc.ReviewedAt = nil
	doc.RejectionReason = ""
	doc.UpdatedAt = now
	if err := s.docs.Update(ctx, doc, prior); err != nil {
		return nil, "", guardedWriteErr(err, "store document")
	}

	sub, err := s.trust.Apply(ctx, doc.OwnerID, id.TrackEvent{
		Kind:         id.EventDocumentReverify,
		Category:     doc.Category,
		StudentProof: doc.Type.IsStudentProof(),
	}, nil)
	if err != nil {
		return nil, "", err
	}

	s.auditor.Record(ctx, audit.Entry{
		SubjectID:  doc.OwnerID,
		Action:     audit.ActionRequestReverification,
		DocumentID: doc.ID,
	})
	return doc, sub.State, nil
}

// Delete removes a document that has not been verified. Verified documents
// back the subject's trust standing and stay until re-review changes that.
func (s *Service) Delete(ctx context.Context, requester id.SubjectID, docID id.DocumentID) error {
	doc, err := s.findDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.OwnerID != requester {
		return dErrors.New(dErrors.CodeUnauthorized, "document belongs to another subject")
	}
	if doc.Status == id.DocStatusVerified {
		return dErrors.New(dErrors.CodeConflict, "verified documents cannot be deleted")
	}

	// Guarded on the status we read: a decision landing between our check
	// and the delete fails the delete rather than removing a verified
	// document.
	if err := s.docs.Delete(ctx, docID, doc.Status); err != nil {
		return guardedWriteErr(err, "delete document")
	}

	s.auditor.Record(ctx, audit.Entry{
		SubjectID:  doc.OwnerID,
		Action:     audit.ActionDeleteDocument,
		DocumentID: doc.ID,
		Reason:     string(doc.Status),
	})
	return nil
}

// ListForSubject returns every document the subject has submitted, oldest
// first.
func (s *Service) ListForSubject(ctx context.Context, owner id.SubjectID) ([]*Document, error) {
	docs, err := s.docs.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list documents")
	}
	return docs, nil
}

func (s *Service) findDocument(ctx context.Context, docID id.DocumentID) (*Document, error) {
	doc, err := s.docs.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load document")
	}
	return doc, nil
}

// guardedWriteErr maps a failed status-guarded store write. A conflict means
// another actor changed the document between our read and our write.
func guardedWriteErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "document changed concurrently, reload and retry")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "document not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, op)
	}
}

func (s *Service) notify(ctx context.Context, subjectID id.SubjectID, event notify.Event, data map[string]string) {
	if err := s.notifier.NotifySubject(ctx, subjectID, event, data); err != nil {
		s.log.Warn().Err(err).Str("event", string(event)).Msg("subject notification failed")
	}
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func subRecord(sub *subject.Subject, category id.DocumentCategory) *subject.SubRecord {
	switch category {
	case id.CategoryIdentity:
		return &sub.Identity
	case id.CategoryAddress:
		return &sub.Address
	case id.CategoryProperty:
		return &sub.Property
	default:
		return nil
	}
}
