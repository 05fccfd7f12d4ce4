package middleware

import (
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSOriginDecisions(t *testing.T) {
	cases := []struct {
		name        string
		allowed     []string
		origin      string
		wantOrigin  string
		wantCreds   string
		wantExposed bool
	}{
		{"listed origin", []string{"https://desk.example.com"}, "https://desk.example.com", "https://desk.example.com", "true", true},
		{"unknown origin", []string{"https://desk.example.com"}, "https://evil.example.com", "", "", true},
		{"wildcard", []string{" * "}, "https://gate.example.org", "*", "", true},
		{"no origin header", []string{"*"}, "", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := CORS(tc.allowed)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected handler to run, got %d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow-origin = %q, want %q", got, tc.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tc.wantCreds {
				t.Fatalf("allow-credentials = %q, want %q", got, tc.wantCreds)
			}
			exposed := strings.Contains(rr.Header().Get("Access-Control-Expose-Headers"), "X-Batch-Persisted")
			if exposed != tc.wantExposed {
				t.Fatalf("batch headers exposed = %v, want %v", exposed, tc.wantExposed)
			}
		})
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	h := CORS([]string{"https://desk.example.com"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("preflight reached the handler")
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/batches", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Methods") != corsAllowMethods {
		t.Fatalf("unexpected allow-methods %q", rr.Header().Get("Access-Control-Allow-Methods"))
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key") {
		t.Fatalf("expected Idempotency-Key allowed, got %q", rr.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestBodyLimit(t *testing.T) {
	for _, tc := range []struct {
		body    string
		tooLong bool
	}{
		{`{"count":5}`, false},
		{strings.Repeat("x", 64), true},
	} {
		var readErr error
		h := BodyLimit(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, readErr = io.ReadAll(r.Body)
			_, _ = r.Body.Read(make([]byte, 1))
			w.WriteHeader(http.StatusNoContent)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/batches/confirm", strings.NewReader(tc.body)))

		var maxErr *http.MaxBytesError
		if got := errors.As(readErr, &maxErr); got != tc.tooLong {
			t.Fatalf("body len %d: MaxBytesError = %v (%v), want %v", len(tc.body), got, readErr, tc.tooLong)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	for _, kv := range securityHeaders {
		if got := rr.Header().Get(kv[0]); got != kv[1] {
			t.Fatalf("%s = %q, want %q", kv[0], got, kv[1])
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must only be set over TLS")
	}

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS over TLS")
	}
}
