package testutil

import (
	"net/http"
	"time"

	id "veristay/pkg/domain"
	"veristay/pkg/requestcontext"
)

// WithAdmin attaches an admin actor to the request context, simulating what
// the admin auth middleware does for authenticated review-console requests.
// Invalid IDs are ignored so tests can probe the unauthenticated path.
func WithAdmin(req *http.Request, adminID string) *http.Request {
	parsed, err := id.ParseAdminID(adminID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithActor(req.Context(), parsed))
}

// WithFrozenTime pins the request clock so handlers observe a deterministic
// now.
func WithFrozenTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
