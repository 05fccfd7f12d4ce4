package middleware

import (
	"net/http"
	"strings"

	"github.com/sandeepkv93/event-credential-service/internal/observability"
)

const corsAllowMethods = "GET, POST, DELETE, OPTIONS"

var (
	corsAllowHeaders  = strings.Join([]string{"Content-Type", "Authorization", "Accept", "Idempotency-Key"}, ", ")
	corsExposeHeaders = strings.Join([]string{"X-Batch-Id", "X-Batch-Persisted", "X-Batch-Failed", "X-Idempotency-Replayed", "Retry-After", "Content-Disposition"}, ", ")
)

type corsPolicy struct {
	origins  map[string]struct{}
	wildcard bool
}

func newCORSPolicy(allowedOrigins []string) corsPolicy {
	p := corsPolicy{origins: map[string]struct{}{}}
	for _, o := range allowedOrigins {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.origins[o] = struct{}{}
		}
	}
	return p
}

// allow sets the origin headers for origin and names the decision for
// metrics. Listed origins may send credentials; the wildcard may not.
func (p corsPolicy) allow(h http.Header, origin string) string {
	if _, ok := p.origins[origin]; ok {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		return "allow_origin"
	}
	if p.wildcard {
		h.Set("Access-Control-Allow-Origin", "*")
		return "allow_any"
	}
	return "rejected_origin"
}

// CORS lets the operator and verifier front ends call the API from the listed
// origins. "*" allows any origin without credentials. Preflights end here.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				h := w.Header()
				observability.RecordMiddlewareValidationEvent(r.Context(), "cors", policy.allow(h, origin))
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			}
			if r.Method == http.MethodOptions {
				observability.RecordMiddlewareValidationEvent(r.Context(), "cors", "preflight")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
