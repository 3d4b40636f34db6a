// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// the track services, and encode; business rules live below.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"veristay/internal/admintoken"
	"veristay/internal/collegemail"
	"veristay/internal/document"
	"veristay/internal/otp"
	platformmetrics "veristay/internal/platform/metrics"
	"veristay/internal/ratelimit"
	"veristay/internal/subject"
	"veristay/internal/trust"
	"veristay/pkg/platform/audit"
	"veristay/pkg/platform/middleware/metadata"
	"veristay/pkg/platform/middleware/requesttime"
	"veristay/pkg/requestcontext"
)

type Handler struct {
	subjects  subject.Store
	trust     *trust.Service
	documents *document.Service
	otp       *otp.Service
	email     *collegemail.Service
	audits    audit.Store
	limits    ratelimit.Store

	tokens *admintoken.Service
	health []func(context.Context) error
	log    zerolog.Logger
}

// Issuance limits, per subject. Verification and status reads are unlimited.
const (
	otpRequestLimit  = 5
	otpRequestWindow = 15 * time.Minute

	emailRequestLimit  = 5
	emailRequestWindow = time.Hour
)

func NewHandler(
	subjects subject.Store,
	trustSvc *trust.Service,
	documents *document.Service,
	otpSvc *otp.Service,
	email *collegemail.Service,
	audits audit.Store,
	limits ratelimit.Store,
	adminJWTSecret string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		subjects:  subjects,
		trust:     trustSvc,
		documents: documents,
		otp:       otpSvc,
		email:     email,
		audits:    audits,
		limits:    limits,
		tokens:    admintoken.NewService([]byte(adminJWTSecret)),
		log:       log,
	}
}

// limitIssuance throttles a route per subject id.
func (h *Handler) limitIssuance(name string, limit int, window time.Duration) func(http.Handler) http.Handler {
	bySubject := func(r *http.Request) string {
		return chi.URLParam(r, "subjectID")
	}
	return ratelimit.Limit(h.limits, name, limit, window, bySubject, h.log)
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(platformmetrics.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(propagateRequestID)
	r.Use(accessLog(h.log))

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/subjects", func(r chi.Router) {
		r.Post("/", h.handleCreateSubject)
		r.Route("/{subjectID}", func(r chi.Router) {
			r.Get("/status", h.handleStatus)

			r.Get("/documents", h.handleListDocuments)
			r.Post("/documents", h.handleSubmitDocument)
			r.Post("/documents/{documentID}/reverify", h.handleRequestReverification)
			r.Delete("/documents/{documentID}", h.handleDeleteDocument)

			r.With(h.limitIssuance("otp_request", otpRequestLimit, otpRequestWindow)).
				Post("/aadhaar/otp", h.handleRequestOTP)
			r.Post("/aadhaar/otp/verify", h.handleVerifyOTP)

			r.With(h.limitIssuance("email_request", emailRequestLimit, emailRequestWindow)).
				Post("/college-email", h.handleRequestEmailVerification)
		})
	})

	// Confirmation links arrive as plain GETs from mail clients.
	r.Get("/college-email/confirm", h.handleConfirmEmail)

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.adminAuth)
		r.Post("/documents/{documentID}/review", h.handleMarkUnderReview)
		r.Post("/documents/{documentID}/decision", h.handleDecide)
		r.Post("/subjects/{subjectID}/college-email/approve", h.handleAdminApproveEmail)
		r.Post("/subjects/{subjectID}/college-email/reject", h.handleAdminRejectEmail)
		r.Get("/subjects/{subjectID}/audit", h.handleListAudit)
	})

	return r
}

// SetHealthChecks registers dependency probes for /healthz. Without any the
// endpoint is a bare liveness check.
func (h *Handler) SetHealthChecks(checks ...func(context.Context) error) {
	h.health = checks
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, check := range h.health {
		if err := check(ctx); err != nil {
			h.log.Warn().Err(err).Msg("health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// propagateRequestID copies chi's request id into the request context keys the
// audit recorder reads.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rid := chimiddleware.GetReqID(ctx); rid != "" {
			ctx = requestcontext.WithRequestID(ctx, rid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("browser", metadata.BrowserSummary(r.Header.Get("User-Agent"))).
				Msg("request")
		})
	}
}
