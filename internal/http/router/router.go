package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/event-credential-service/internal/health"
	"github.com/sandeepkv93/event-credential-service/internal/http/handler"
	"github.com/sandeepkv93/event-credential-service/internal/http/middleware"
	"github.com/sandeepkv93/event-credential-service/internal/http/response"
	"github.com/sandeepkv93/event-credential-service/internal/security"
)

const (
	jsonBodyLimit         int64 = 1 << 20
	IdempotencyScopeIssue       = "batches.issue"
)

type Dependencies struct {
	BatchHandler        *handler.BatchHandler
	CredentialHandler   *handler.CredentialHandler
	VerificationHandler *handler.VerificationHandler
	JWTManager          *security.JWTManager
	CORSOrigins         []string
	APIRateLimitRPM     int
	VerifyRateLimitRPM  int
	UploadMaxBytes      int64
	APIRateLimiter      APIRateLimiterFunc
	VerifyRateLimiter   VerifyRateLimiterFunc
	Idempotency         IdempotencyMiddlewareFactory
	Readiness           *health.ProbeRunner
	EnableOTelHTTP      bool
}

type APIRateLimiterFunc func(http.Handler) http.Handler
type VerifyRateLimiterFunc func(http.Handler) http.Handler
type IdempotencyMiddlewareFactory func(scope string) func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))

	apiLimiter := dep.APIRateLimiter
	if apiLimiter == nil {
		apiLimiter = middleware.LocalRateLimit("api", dep.APIRateLimitRPM)
	}
	verifyLimiter := dep.VerifyRateLimiter
	if verifyLimiter == nil {
		verifyLimiter = middleware.LocalRateLimit("verify", dep.VerifyRateLimitRPM)
	}
	uploadLimit := dep.UploadMaxBytes
	if uploadLimit <= 0 {
		uploadLimit = 5 << 20
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(jsonBodyLimit))
			r.Use(middleware.OperatorAuth(dep.JWTManager))
			r.Use(apiLimiter)

			r.Route("/batches", func(r chi.Router) {
				r.Post("/confirmations", dep.BatchHandler.Confirm)
				issueChain := []func(http.Handler) http.Handler{}
				if dep.Idempotency != nil {
					issueChain = append(issueChain, dep.Idempotency(IdempotencyScopeIssue))
				}
				r.With(issueChain...).Post("/", dep.BatchHandler.Issue)
				r.Get("/", dep.BatchHandler.List)
				r.Get("/{id}", dep.BatchHandler.Get)
				r.Get("/{id}/document", dep.BatchHandler.Document)
			})
			r.Route("/credentials", func(r chi.Router) {
				r.Get("/", dep.CredentialHandler.List)
				r.Get("/{uniqueID}", dep.CredentialHandler.Get)
			})
		})

		r.Route("/verify/sessions", func(r chi.Router) {
			r.Use(verifyLimiter)
			r.With(middleware.BodyLimit(jsonBodyLimit)).Post("/", dep.VerificationHandler.Create)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", dep.VerificationHandler.Get)
				r.Delete("/", dep.VerificationHandler.Close)
				r.With(middleware.BodyLimit(jsonBodyLimit)).Post("/scan", dep.VerificationHandler.Scan)
				r.With(middleware.BodyLimit(jsonBodyLimit)).Post("/manual", dep.VerificationHandler.Manual)
				r.With(middleware.BodyLimit(jsonBodyLimit)).Post("/dismiss", dep.VerificationHandler.Dismiss)
				// Uploads carry a photo, so they get their own limit instead of the JSON one.
				r.With(middleware.BodyLimit(uploadLimit)).Post("/upload", dep.VerificationHandler.Upload)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
