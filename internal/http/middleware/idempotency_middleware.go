package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sandeepkv93/event-credential-service/internal/http/response"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/service"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	maxIdempotencyKeyBytes = 128
)

// IdempotencyMiddleware makes a mutating route safe to retry: the first
// request under a key runs, later ones with the same payload replay its
// stored response.
type IdempotencyMiddleware struct {
	store service.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyMiddleware(store service.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

var idempotencyRejections = map[service.IdempotencyState]struct{ reason, message string }{
	service.IdempotencyStateConflict:   {"fingerprint_conflict", "idempotency key reuse with different payload"},
	service.IdempotencyStateInProgress: {"request_in_progress", "request with this idempotency key is in progress"},
}

func (m *IdempotencyMiddleware) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			call, ok := readIdempotentCall(w, r, scope)
			if !ok {
				return
			}
			begin, err := m.store.Begin(r.Context(), scope, call.key, call.fingerprint, m.ttl)
			if err != nil {
				call.audit("idempotency.check", "check", "failure", "store_error", "error", err.Error())
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "idempotency check failed", nil)
				return
			}
			if rej, found := idempotencyRejections[begin.State]; found {
				call.audit("idempotency.check", "check", "rejected", rej.reason)
				response.Error(w, r, http.StatusConflict, "CONFLICT", rej.message, nil)
				return
			}
			if begin.State == service.IdempotencyStateReplay {
				call.audit("idempotency.replay", "replay", "success", "cached_response")
				replay(w, begin.Cached)
				return
			}

			var captured bytes.Buffer
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)
			m.finish(call, ww, captured.Bytes())
		})
	}
}

// finish stores the response, except server failures, which release the key
// so the same request can be retried.
func (m *IdempotencyMiddleware) finish(call *idempotentCall, ww chimiddleware.WrapResponseWriter, body []byte) {
	ctx := call.r.Context()
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		if err := m.store.Abandon(ctx, call.scope, call.key, call.fingerprint); err != nil {
			call.audit("idempotency.abandon", "abandon", "failure", "store_error", "error", err.Error())
		}
		return
	}
	cached := service.CachedHTTPResponse{StatusCode: status, ContentType: ww.Header().Get("Content-Type"), Body: body}
	if err := m.store.Complete(ctx, call.scope, call.key, call.fingerprint, cached, m.ttl); err != nil {
		call.audit("idempotency.complete", "complete", "failure", "store_error", "error", err.Error())
	}
}

type idempotentCall struct {
	r           *http.Request
	scope       string
	key         string
	fingerprint string
}

// readIdempotentCall validates the key and buffers the body so it can be
// fingerprinted and still reach the handler.
func readIdempotentCall(w http.ResponseWriter, r *http.Request, scope string) (*idempotentCall, bool) {
	reject := func(outcome, message string) (*idempotentCall, bool) {
		observability.RecordIdempotencyEvent(r.Context(), scope, outcome)
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", message, nil)
		return nil, false
	}
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	switch {
	case key == "":
		return reject("missing_key", "missing Idempotency-Key header")
	case len(key) > maxIdempotencyKeyBytes:
		return reject("invalid_key", "invalid Idempotency-Key header")
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return reject("read_error", "invalid request payload")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return &idempotentCall{r: r, scope: scope, key: key, fingerprint: fingerprintRequest(r, scope, body)}, true
}

func (c *idempotentCall) audit(event, action, outcome, reason string, kv ...any) {
	actor := "anonymous"
	if claims, ok := OperatorFromContext(c.r.Context()); ok {
		actor = claims.Subject
	}
	observability.EmitAudit(c.r, observability.AuditInput{
		EventName:   event,
		ActorUserID: actor,
		TargetType:  "idempotency_key",
		TargetID:    sha256Hex([]byte(c.key))[:12],
		Action:      action,
		Outcome:     outcome,
		Reason:      reason,
	}, append([]any{"scope", c.scope}, kv...)...)
}

func replay(w http.ResponseWriter, cached *service.CachedHTTPResponse) {
	if cached == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h := w.Header()
	if cached.ContentType != "" {
		h.Set("Content-Type", cached.ContentType)
	}
	h.Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

// fingerprintRequest binds a key to the route, the caller, the negotiated
// representation and the exact body.
func fingerprintRequest(r *http.Request, scope string, body []byte) string {
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	caller := "ip:" + ClientIPKey(r)
	if claims, ok := OperatorFromContext(r.Context()); ok {
		caller = "sub:" + claims.Subject
	}
	parts := []string{scope, r.Method, route, caller, r.Header.Get("Accept"), sha256Hex(body)}
	return sha256Hex([]byte(strings.Join(parts, "\n")))
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
