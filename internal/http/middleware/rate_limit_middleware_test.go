package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/security"
)

type mockLimiter struct {
	allow bool
	retry time.Duration
	err   error
}

func (m mockLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return m.allow, m.retry, m.err
}

type recordingLimiter struct {
	lastKey string
	allow   bool
}

func (r *recordingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	r.lastKey = key
	return r.allow, 0, nil
}

func serveThrough(rl *RateLimiter, req *http.Request) *httptest.ResponseRecorder {
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimiterDecisions(t *testing.T) {
	down := errors.New("redis down")
	cases := []struct {
		name       string
		limiter    Limiter
		policy     RateLimitPolicy
		wantCode   int
		wantRetry  string
		wantLimitH string
	}{
		{"backend error fail open", mockLimiter{err: down}, RateLimitPolicy{Limit: 10, Mode: FailOpen}, http.StatusOK, "", "10"},
		{"backend error fail closed", mockLimiter{err: down}, RateLimitPolicy{Scope: "verify", Limit: 10, Mode: FailClosed}, http.StatusTooManyRequests, "60", "10"},
		{"backend error defaults closed", mockLimiter{err: down}, RateLimitPolicy{Limit: 3}, http.StatusTooManyRequests, "60", "3"},
		{"denied", mockLimiter{retry: 5 * time.Second}, RateLimitPolicy{Limit: 1}, http.StatusTooManyRequests, "5", "1"},
		{"denied rounds up to one second", mockLimiter{retry: 100 * time.Millisecond}, RateLimitPolicy{Limit: 1}, http.StatusTooManyRequests, "1", "1"},
		{"allowed", mockLimiter{allow: true}, RateLimitPolicy{Limit: 7}, http.StatusOK, "", "7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/verify/sessions", nil)
			req.RemoteAddr = "10.0.0.1:1111"
			rr := serveThrough(NewRateLimiter(tc.limiter, tc.policy), req)
			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if got := rr.Header().Get("Retry-After"); got != tc.wantRetry {
				t.Fatalf("Retry-After = %q, want %q", got, tc.wantRetry)
			}
			if got := rr.Header().Get("X-RateLimit-Limit"); got != tc.wantLimitH {
				t.Fatalf("X-RateLimit-Limit = %q, want %q", got, tc.wantLimitH)
			}
		})
	}
}

func TestLocalRateLimitCountsPerClient(t *testing.T) {
	h := LocalRateLimit("verify", 1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	if send("10.0.0.1:1") != http.StatusOK || send("10.0.0.2:1") != http.StatusOK {
		t.Fatal("first request per client should pass")
	}
	if code := send("10.0.0.1:2"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request from same host to be limited, got %d", code)
	}
}

func TestLocalFixedWindowLimiterResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalFixedWindowLimiter().(*memoryLimiter)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _, _ := l.Allow(ctx, "k", 2, time.Minute); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	ok, retry, _ := l.Allow(ctx, "k", 2, time.Minute)
	if ok || retry != time.Minute {
		t.Fatalf("expected deny with full window retry, got ok=%v retry=%v", ok, retry)
	}
	if ok, _, _ := l.Allow(ctx, "other", 2, time.Minute); !ok {
		t.Fatal("keys must be isolated")
	}
	now = now.Add(time.Minute)
	if ok, _, _ := l.Allow(ctx, "k", 2, time.Minute); !ok {
		t.Fatal("expected window reset")
	}
}

func TestOperatorOrIPKeyFuncUsesSubjectWhenTokenValid(t *testing.T) {
	jwtMgr := security.NewJWTManager("iss", "abcdefghijklmnopqrstuvwxyz123456", time.Hour, time.Minute)
	token, _, err := jwtMgr.SignOperatorToken("desk-1")
	if err != nil {
		t.Fatalf("sign operator token: %v", err)
	}

	limiter := &recordingLimiter{allow: true}
	rl := NewRateLimiter(limiter, RateLimitPolicy{Limit: 10, Key: OperatorOrIPKeyFunc(jwtMgr)})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:1111"
	req.Header.Set("Authorization", "Bearer "+token)
	if rr := serveThrough(rl, req); rr.Code != http.StatusOK {
		t.Fatalf("expected request to pass, got %d", rr.Code)
	}
	if limiter.lastKey != "api:sub:desk-1" {
		t.Fatalf("expected subject key, got %q", limiter.lastKey)
	}
}

func TestOperatorOrIPKeyFuncFallsBackToIPWhenTokenInvalid(t *testing.T) {
	jwtMgr := security.NewJWTManager("iss", "abcdefghijklmnopqrstuvwxyz123456", time.Hour, time.Minute)
	limiter := &recordingLimiter{allow: true}
	rl := NewRateLimiter(limiter, RateLimitPolicy{Limit: 10, Key: OperatorOrIPKeyFunc(jwtMgr)})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:1111"
	req.Header.Set("Authorization", "Bearer not-a-token")
	serveThrough(rl, req)
	if limiter.lastKey != "api:10.0.0.1" {
		t.Fatalf("expected IP key fallback, got %q", limiter.lastKey)
	}
}
