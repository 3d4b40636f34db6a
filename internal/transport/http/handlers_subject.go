package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"veristay/internal/subject"
	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/httputil"
)

type createSubjectRequest struct {
	Email   string `json:"email"`
	IsOwner bool   `json:"is_owner"`
}

type subjectResponse struct {
	ID      string               `json:"id"`
	Email   string               `json:"email,omitempty"`
	IsOwner bool                 `json:"is_owner"`
	State   id.VerificationState `json:"state"`
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req createSubjectRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	sub := &subject.Subject{
		ID:      id.NewSubjectID(),
		Email:   req.Email,
		IsOwner: req.IsOwner,
		State:   id.StateUnverified,
	}
	if err := h.subjects.Create(r.Context(), sub); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "create subject"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, subjectResponse{
		ID:      sub.ID.String(),
		Email:   sub.Email,
		IsOwner: sub.IsOwner,
		State:   sub.State,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.trust.Status(r.Context(), subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
