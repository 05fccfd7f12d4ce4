package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/http/response"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/security"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// FailureMode decides what happens to a request when the limiter backend
// errors.
type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// RateLimitPolicy is one named budget: Limit requests per Window for each key.
type RateLimitPolicy struct {
	Scope  string
	Limit  int
	Window time.Duration
	Mode   FailureMode
	Key    KeyFunc
}

func (p RateLimitPolicy) withDefaults() RateLimitPolicy {
	if p.Scope == "" {
		p.Scope = "api"
	}
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	if p.Mode == "" {
		p.Mode = FailClosed
	}
	if p.Key == nil {
		p.Key = ClientIPKey
	}
	return p
}

type windowCount struct {
	started time.Time
	hits    int
}

// memoryLimiter counts fixed windows in process. Stale keys are swept at most
// once per window.
type memoryLimiter struct {
	mu        sync.Mutex
	windows   map[string]*windowCount
	nextSweep time.Time
	now       func() time.Time
}

func NewLocalFixedWindowLimiter() Limiter {
	return &memoryLimiter{windows: map[string]*windowCount{}, now: time.Now}
}

func (l *memoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now, window)

	w := l.windows[key]
	if w == nil || now.Sub(w.started) >= window {
		l.windows[key] = &windowCount{started: now, hits: 1}
		return true, 0, nil
	}
	if w.hits < limit {
		w.hits++
		return true, 0, nil
	}
	return false, max(window-now.Sub(w.started), 0), nil
}

func (l *memoryLimiter) sweep(now time.Time, window time.Duration) {
	if now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(window)
	for k, w := range l.windows {
		if now.Sub(w.started) >= window {
			delete(l.windows, k)
		}
	}
}

type RateLimiter struct {
	limiter Limiter
	policy  RateLimitPolicy
}

func NewRateLimiter(limiter Limiter, policy RateLimitPolicy) *RateLimiter {
	if limiter == nil {
		limiter = NewLocalFixedWindowLimiter()
	}
	return &RateLimiter{limiter: limiter, policy: policy.withDefaults()}
}

// LocalRateLimit is the single-instance limiter used when no shared backend
// is configured.
func LocalRateLimit(scope string, perMinute int) func(http.Handler) http.Handler {
	return NewRateLimiter(nil, RateLimitPolicy{Scope: scope, Limit: perMinute, Window: time.Minute}).Middleware()
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	p := rl.policy
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(p.Limit))
			allowed, retryAfter, err := rl.limiter.Allow(ctx, p.Scope+":"+p.Key(r), p.Limit, p.Window)

			decision := "allowed"
			switch {
			case err != nil && p.Mode == FailOpen:
				decision = "backend_error_allowed"
				slog.WarnContext(ctx, "rate limiter backend unavailable, allowing request",
					"scope", p.Scope, "mode", string(p.Mode), "error", err.Error())
			case err != nil:
				decision, retryAfter = "backend_error_denied", p.Window
			case !allowed:
				decision = "denied"
				observability.RecordRateLimitRetryAfter(ctx, p.Scope, retryAfter)
			}
			observability.RecordRateLimitDecision(ctx, p.Scope, decision, string(p.Mode))

			if decision == "denied" || decision == "backend_error_denied" {
				w.Header().Set("Retry-After", retryAfterHeader(retryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// OperatorOrIPKeyFunc counts authenticated operators per subject and everyone
// else per client address.
func OperatorOrIPKeyFunc(jwtMgr *security.JWTManager) KeyFunc {
	return func(r *http.Request) string {
		if claims, ok := OperatorFromContext(r.Context()); ok {
			return "sub:" + claims.Subject
		}
		if jwtMgr != nil {
			if raw := bearerToken(r); raw != "" {
				if claims, err := jwtMgr.ParseOperatorToken(raw); err == nil {
					return "sub:" + claims.Subject
				}
			}
		}
		return ClientIPKey(r)
	}
}

func retryAfterHeader(d time.Duration) string {
	return strconv.Itoa(max(int(d.Round(time.Second)/time.Second), 1))
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
