package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/event-credential-service/internal/security"
	"github.com/sandeepkv93/event-credential-service/internal/service"
	servicegomock "github.com/sandeepkv93/event-credential-service/internal/service/gomock"
)

type beginCall struct {
	scope       string
	key         string
	fingerprint string
	ttl         time.Duration
}

type completeCall struct {
	scope       string
	key         string
	fingerprint string
	response    service.CachedHTTPResponse
	ttl         time.Duration
}

type idempotencyStoreConfig struct {
	beginResult service.IdempotencyBeginResult
	beginErr    error
	completeErr error
}

type idempotencyCalls struct {
	begin    []beginCall
	complete []completeCall
	abandon  []string
}

func newIdempotencyStoreMock(t *testing.T, cfg idempotencyStoreConfig) (*servicegomock.MockIdempotencyStore, *idempotencyCalls) {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := servicegomock.NewMockIdempotencyStore(ctrl)
	calls := &idempotencyCalls{}

	store.EXPECT().Begin(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(_ context.Context, scope, key, fingerprint string, ttl time.Duration) (service.IdempotencyBeginResult, error) {
			calls.begin = append(calls.begin, beginCall{scope: scope, key: key, fingerprint: fingerprint, ttl: ttl})
			if cfg.beginErr != nil {
				return service.IdempotencyBeginResult{}, cfg.beginErr
			}
			return cfg.beginResult, nil
		},
	)
	store.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(_ context.Context, scope, key, fingerprint string, response service.CachedHTTPResponse, ttl time.Duration) error {
			calls.complete = append(calls.complete, completeCall{scope: scope, key: key, fingerprint: fingerprint, response: response, ttl: ttl})
			return cfg.completeErr
		},
	)
	store.EXPECT().Abandon(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(_ context.Context, scope, key, fingerprint string) error {
			calls.abandon = append(calls.abandon, key)
			return nil
		},
	)
	return store, calls
}

type errReadCloser struct{}

func (errReadCloser) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func (errReadCloser) Close() error { return nil }

func issueRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func TestIdempotencyMiddlewareRejectsMissingAndTooLongKey(t *testing.T) {
	for _, key := range []string{"", strings.Repeat("a", 129)} {
		store, calls := newIdempotencyStoreMock(t, idempotencyStoreConfig{})
		h := NewIdempotencyMiddleware(store, time.Minute).Middleware("batches.issue")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, issueRequest(key, `{"count":3}`))

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("key len %d: expected 400, got %d", len(key), rr.Code)
		}
		if len(calls.begin) != 0 {
			t.Fatalf("expected no begin calls, got %d", len(calls.begin))
		}
	}
}

func TestIdempotencyMiddlewareRejectsUnreadableBody(t *testing.T) {
	store, calls := newIdempotencyStoreMock(t, idempotencyStoreConfig{})
	h := NewIdempotencyMiddleware(store, time.Minute).Middleware("batches.issue")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	req := issueRequest("req-1", "ignored")
	req.Body = errReadCloser{}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(calls.begin) != 0 {
		t.Fatalf("expected no begin calls on body read error, got %d", len(calls.begin))
	}
}

func TestIdempotencyMiddlewareBeginErrorReturnsInternal(t *testing.T) {
	store, calls := newIdempotencyStoreMock(t, idempotencyStoreConfig{beginErr: errors.New("db unavailable")})
	h := NewIdempotencyMiddleware(store, 2*time.Minute).Middleware("batches.issue")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when begin fails")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, issueRequest("req-2", `{"count":3}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if len(calls.begin) != 1 || calls.begin[0].ttl != 2*time.Minute {
		t.Fatalf("unexpected begin calls %+v", calls.begin)
	}
}

func TestIdempotencyMiddlewareBeginStateBranches(t *testing.T) {
	tests := []struct {
		name       string
		state      service.IdempotencyState
		cached     *service.CachedHTTPResponse
		wantCode   int
		wantReplay bool
	}{
		{name: "in progress", state: service.IdempotencyStateInProgress, wantCode: http.StatusConflict},
		{name: "conflict", state: service.IdempotencyStateConflict, wantCode: http.StatusConflict},
		{
			name:  "replay cached pdf",
			state: service.IdempotencyStateReplay,
			cached: &service.CachedHTTPResponse{
				StatusCode:  http.StatusCreated,
				ContentType: "application/pdf",
				Body:        []byte("%PDF-1.3"),
			},
			wantCode:   http.StatusCreated,
			wantReplay: true,
		},
		{name: "replay nil cached", state: service.IdempotencyStateReplay, wantCode: http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, calls := newIdempotencyStoreMock(t, idempotencyStoreConfig{beginResult: service.IdempotencyBeginResult{State: tc.state, Cached: tc.cached}})
			h := NewIdempotencyMiddleware(store, time.Minute).Middleware("batches.issue")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, issueRequest("req-3", `{"count":3}`))

			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			replayed := rr.Header().Get("X-Idempotency-Replayed") == "true"
			if replayed != tc.wantReplay {
				t.Fatalf("expected replay=%v, got %v", tc.wantReplay, replayed)
			}
			if tc.wantReplay && rr.Body.String() != string(tc.cached.Body) {
				t.Fatalf("expected cached body, got %q", rr.Body.String())
			}
			if len(calls.complete) != 0 {
				t.Fatalf("expected no complete calls, got %d", len(calls.complete))
			}
		})
	}
}

func TestIdempotencyMiddlewareServerErrorAbandonsKey(t *testing.T) {
	store, calls := newIdempotencyStoreMock(t, idempotencyStoreConfig{beginResult: service.IdempotencyBeginResult{State: service.IdempotencyStateNew}})
	h := NewIdempotencyMiddleware(store, time.Minute).Middleware("batches.issue")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, issueRequest("req-5", `{"count":3}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if len(calls.complete) != 0 {
		t.Fatalf("expected no complete calls for 5xx response, got %d", len(calls.complete))
	}
	if len(calls.abandon) != 1 || calls.abandon[0] != "req-5" {
		t.Fatalf("expected key to be abandoned, got %v", calls.abandon)
	}
}

func TestIdempotencyMiddlewareCompletesAndForwardsBody(t *testing.T) {
	store, calls := newIdempotencyStoreMock(t, idempotencyStoreConfig{
		beginResult: service.IdempotencyBeginResult{State: service.IdempotencyStateNew},
		completeErr: errors.New("complete failed"),
	})
	h := NewIdempotencyMiddleware(store, 2*time.Minute).Middleware("batches.issue")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"count":3}` {
			t.Fatalf("downstream body mismatch: %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, issueRequest("req-6", `{"count":3}`))

	if rr.Code != http.StatusCreated || rr.Body.String() != `{"ok":true}` {
		t.Fatalf("expected original response, got %d %q", rr.Code, rr.Body.String())
	}
	if len(calls.complete) != 1 {
		t.Fatalf("expected one complete call, got %d", len(calls.complete))
	}
	cc := calls.complete[0]
	if cc.response.StatusCode != http.StatusCreated || cc.response.ContentType != "application/json" {
		t.Fatalf("unexpected cached response %+v", cc.response)
	}
	if cc.fingerprint != calls.begin[0].fingerprint {
		t.Fatal("complete must use the begin fingerprint")
	}
}

func TestIdempotencyFingerprintUsesRoutePatternActorAndAccept(t *testing.T) {
	withRoute := func(req *http.Request) *http.Request {
		rc := chi.NewRouteContext()
		rc.RoutePatterns = []string{"/api/v1/batches"}
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}
	body := []byte(`{"count":3}`)

	base := withRoute(httptest.NewRequest(http.MethodPost, "/api/v1/batches", nil))
	base.RemoteAddr = "203.0.113.9:8080"

	claims := &security.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "desk-1"}}
	operator := base.WithContext(context.WithValue(base.Context(), OperatorContextKey, claims))

	if fingerprintRequest(base, "batches.issue", body) == fingerprintRequest(operator, "batches.issue", body) {
		t.Fatal("expected different fingerprints for operator vs anonymous actor")
	}
	samePeer := base.Clone(base.Context())
	samePeer.RemoteAddr = "203.0.113.9:9443"
	if fingerprintRequest(base, "batches.issue", body) != fingerprintRequest(samePeer, "batches.issue", body) {
		t.Fatal("expected the client port to be ignored")
	}
	if fingerprintRequest(base, "batches.issue", body) == fingerprintRequest(base, "batches.issue", []byte(`{"count":4}`)) {
		t.Fatal("expected the body to change the fingerprint")
	}

	pdf := base.Clone(base.Context())
	pdf.Header.Set("Accept", "application/pdf")
	if fingerprintRequest(base, "batches.issue", body) == fingerprintRequest(pdf, "batches.issue", body) {
		t.Fatal("expected Accept header to change the fingerprint")
	}
}

func FuzzIdempotencyMiddlewareKeyAndBodyRobustness(f *testing.F) {
	f.Add(true, "idem-key-1", []byte(`{"count":3}`))
	f.Add(false, "", []byte(`{}`))
	f.Add(true, strings.Repeat("k", 129), []byte(`{}`))
	f.Add(true, "  padded  ", []byte(strings.Repeat("a", 512)))

	f.Fuzz(func(t *testing.T, includeKey bool, key string, body []byte) {
		if len(key) > 512 {
			key = key[:512]
		}
		if len(body) > 4096 {
			body = body[:4096]
		}
		store, calls := newIdempotencyStoreMock(t, idempotencyStoreConfig{beginResult: service.IdempotencyBeginResult{State: service.IdempotencyStateNew}})
		h := NewIdempotencyMiddleware(store, time.Minute).Middleware("batches.issue")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ := io.ReadAll(r.Body)
			if !bytes.Equal(got, body) {
				t.Fatalf("downstream body mismatch")
			}
			w.WriteHeader(http.StatusCreated)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", bytes.NewReader(body))
		if includeKey {
			req.Header.Set(idempotencyHeader, key)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		trimmed := strings.TrimSpace(req.Header.Get(idempotencyHeader))
		if !includeKey || trimmed == "" || len(trimmed) > maxIdempotencyKeyBytes {
			if rr.Code != http.StatusBadRequest || len(calls.begin) != 0 {
				t.Fatalf("expected 400 without begin, got %d with %d begins", rr.Code, len(calls.begin))
			}
			return
		}
		if rr.Code != http.StatusCreated || len(calls.begin) != 1 || len(calls.complete) != 1 {
			t.Fatalf("unexpected flow code=%d begin=%d complete=%d", rr.Code, len(calls.begin), len(calls.complete))
		}
	})
}
