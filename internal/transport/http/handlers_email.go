package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veristay/internal/collegemail"
	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/httputil"
)

type requestEmailRequest struct {
	Email string `json:"email"`
}

type requestEmailResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleRequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	owner, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req requestEmailRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.email.RequestVerification(r.Context(), owner, req.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, requestEmailResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

type confirmEmailResponse struct {
	Email            string               `json:"email"`
	Status           string               `json:"status"`
	AlreadyConfirmed bool                 `json:"already_confirmed,omitempty"`
	PendingAdmin     bool                 `json:"pending_admin,omitempty"`
	State            id.VerificationState `json:"state,omitempty"`
}

func (h *Handler) handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "token query parameter is required"))
		return
	}

	result, err := h.email.Confirm(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, confirmEmailResponse{
		Email:            result.Record.ClaimedEmail,
		Status:           string(result.Record.Status),
		AlreadyConfirmed: result.AlreadyConfirmed,
		PendingAdmin:     result.Record.Status == collegemail.StatusPendingAdmin,
		State:            result.State,
	})
}

type emailDecisionResponse struct {
	Email  string               `json:"email"`
	Status string               `json:"status"`
	Reason string               `json:"reason,omitempty"`
	State  id.VerificationState `json:"state"`
}

func (h *Handler) handleAdminApproveEmail(w http.ResponseWriter, r *http.Request) {
	owner, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, state, err := h.email.AdminApprove(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, emailDecisionResponse{
		Email:  rec.ClaimedEmail,
		Status: string(rec.Status),
		State:  state,
	})
}

type rejectEmailRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleAdminRejectEmail(w http.ResponseWriter, r *http.Request) {
	owner, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req rejectEmailRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, state, err := h.email.AdminReject(r.Context(), owner, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, emailDecisionResponse{
		Email:  rec.ClaimedEmail,
		Status: string(rec.Status),
		Reason: rec.RejectionReason,
		State:  state,
	})
}
