package httptransport

import (
	"net/http"
	"strings"

	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/httputil"
	"veristay/pkg/requestcontext"
)

// adminAuth authenticates the review console. The verified admin id is
// attached to the request context so services can stamp it on audit entries.
func (h *Handler) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
			return
		}

		adminID, err := h.tokens.Parse(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		ctx := requestcontext.WithActor(r.Context(), adminID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
