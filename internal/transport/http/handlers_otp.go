package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/httputil"
)

type requestOTPRequest struct {
	IDNumber string `json:"id_number"`
}

type requestOTPResponse struct {
	RequestID   string `json:"request_id"`
	ProviderRef string `json:"provider_ref,omitempty"`
	DevCode     string `json:"dev_code,omitempty"`
}

func (h *Handler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req requestOTPRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.otp.RequestChallenge(r.Context(), subjectID, req.IDNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, requestOTPResponse{
		RequestID:   result.RequestID,
		ProviderRef: result.ProviderRef,
		DevCode:     result.DevCode,
	})
}

type verifyOTPRequest struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
}

type verifyOTPResponse struct {
	ProviderRef string               `json:"provider_ref,omitempty"`
	State       id.VerificationState `json:"state"`
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	// The subject in the path is informational; the challenge itself knows
	// which subject it belongs to.
	if _, err := id.ParseSubjectID(chi.URLParam(r, "subjectID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req verifyOTPRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.otp.VerifyChallenge(r.Context(), req.RequestID, req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyOTPResponse{
		ProviderRef: result.ProviderRef,
		State:       result.State,
	})
}
