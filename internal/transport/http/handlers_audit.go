package httptransport

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	id "veristay/pkg/domain"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/audit"
	"veristay/pkg/platform/httputil"
)

// handleListAudit returns a subject's audit trail, newest first. The actions
// query parameter optionally filters to a comma-separated action list.
func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var entries []audit.Entry
	if raw := r.URL.Query().Get("actions"); raw != "" {
		var actions []audit.Action
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				actions = append(actions, audit.Action(a))
			}
		}
		entries, err = h.audits.ListBySubjectActions(r.Context(), subjectID, actions)
	} else {
		entries, err = h.audits.ListBySubject(r.Context(), subjectID)
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list audit entries"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
