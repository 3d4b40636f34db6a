package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/httputil"
)

// KeyFunc derives the limiter key for a request, typically the subject id
// from the route. Returning "" skips limiting for that request.
type KeyFunc func(r *http.Request) string

// Limit throttles a route. The name scopes the key so different routes never
// share a bucket. Store errors fail open: issuance endpoints staying up
// matters more than strict enforcement while Redis is down.
func Limit(store Store, name string, limit int, window time.Duration, key KeyFunc, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := store.Allow(r.Context(), name+":"+k, limit, window)
			if err != nil {
				log.Warn().Err(err).Str("route", name).Msg("rate limit check failed, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !res.Allowed {
				rejectionsTotal.WithLabelValues(name).Inc()
				retryAfter := int(time.Until(res.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
