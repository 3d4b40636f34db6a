package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veristay/internal/document"
	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/httputil"
)

type submitDocumentRequest struct {
	Type        string `json:"type"`
	EvidenceRef string `json:"evidence_ref"`
	PropertyRef string `json:"property_ref,omitempty"`
	ExpiresAt   *int64 `json:"expires_at,omitempty"`
}

type documentResponse struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Category        string     `json:"category"`
	Status          string     `json:"status"`
	EvidenceRef     string     `json:"evidence_ref"`
	PropertyRef     string     `json:"property_ref,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toDocumentResponse(doc *document.Document) documentResponse {
	return documentResponse{
		ID:              doc.ID.String(),
		Type:            string(doc.Type),
		Category:        string(doc.Category),
		Status:          string(doc.Status),
		EvidenceRef:     doc.EvidenceRef,
		PropertyRef:     doc.PropertyRef,
		RejectionReason: doc.RejectionReason,
		ReviewedAt:      doc.ReviewedAt,
		ExpiresAt:       doc.ExpiresAt,
		CreatedAt:       doc.CreatedAt,
	}
}

type documentStateResponse struct {
	Document documentResponse     `json:"document"`
	State    id.VerificationState `json:"state"`
}

func (h *Handler) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	owner, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req submitDocumentRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, state, err := h.documents.Submit(r.Context(), owner, document.SubmitInput{
		Type:        req.Type,
		EvidenceRef: req.EvidenceRef,
		PropertyRef: req.PropertyRef,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, documentStateResponse{
		Document: toDocumentResponse(doc),
		State:    state,
	})
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	owner, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	docs, err := h.documents.ListForSubject(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *Handler) handleRequestReverification(w http.ResponseWriter, r *http.Request) {
	owner, docID, err := subjectDocParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, state, err := h.documents.RequestReverification(r.Context(), owner, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, documentStateResponse{
		Document: toDocumentResponse(doc),
		State:    state,
	})
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	owner, docID, err := subjectDocParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.documents.Delete(r.Context(), owner, docID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkUnderReview(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.documents.MarkUnderReview(r.Context(), docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

type decisionRequest struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

type decisionResponse struct {
	Document       documentResponse     `json:"document"`
	Outcome        string               `json:"outcome"`
	SystemOverride bool                 `json:"system_override,omitempty"`
	Reason         string               `json:"reason,omitempty"`
	State          id.VerificationState `json:"state"`
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req decisionRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.documents.Decide(r.Context(), docID, id.DocumentStatus(req.Outcome), req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decisionResponse{
		Document:       toDocumentResponse(result.Document),
		Outcome:        string(result.Outcome),
		SystemOverride: result.SystemOverride,
		Reason:         result.Reason,
		State:          result.State,
	})
}

func subjectDocParams(r *http.Request) (id.SubjectID, id.DocumentID, error) {
	owner, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		return id.SubjectID{}, id.DocumentID{}, err
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		return id.SubjectID{}, id.DocumentID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid document id")
	}
	return owner, docID, nil
}
