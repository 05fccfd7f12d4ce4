package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/sandeepkv93/event-credential-service/internal/http/response"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/security"
)

type contextKey string

const (
	OperatorContextKey contextKey = "operator"
)

// OperatorAuth admits requests that carry a valid operator bearer token.
func OperatorAuth(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				observability.RecordOperatorTokenValidation(r.Context(), "missing")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator token", nil)
				return
			}
			claims, err := jwtMgr.ParseOperatorToken(raw)
			if err != nil {
				outcome := "invalid"
				if errors.Is(err, security.ErrWrongTokenType) {
					outcome = "wrong_type"
				}
				observability.RecordOperatorTokenValidation(r.Context(), outcome)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid operator token", nil)
				return
			}
			observability.RecordOperatorTokenValidation(r.Context(), "success")
			ctx := context.WithValue(r.Context(), OperatorContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func OperatorFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(OperatorContextKey).(*security.Claims)
	return c, ok
}
