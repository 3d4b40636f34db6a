// Package requesttime pins one timestamp per HTTP request. Every store write,
// audit entry, and expiry check made while serving a request observes the same
// "now", so a document cannot be unexpired at decision time and expired a
// microsecond later in its audit entry.
package requesttime

import (
	"net/http"
	"time"

	"veristay/pkg/requestcontext"
)

// Middleware captures the wall clock once at the start of the request and
// stores it in the context for requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
