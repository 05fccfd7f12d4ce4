package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/scancode"
)

const (
	DefaultSessionTTL  = 15 * time.Minute
	DefaultMaxSessions = 1000
)

// VerificationSession is one verifying client: its pipeline plus the recent
// events the pipeline reported.
type VerificationSession struct {
	ID        string
	CreatedAt time.Time
	Pipeline  *Pipeline
	Events    *EventRecorder

	lastSeen atomic.Int64
}

func (s *VerificationSession) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *VerificationSession) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()).UTC() }

type SessionRegistryConfig struct {
	TTL         time.Duration
	MaxSessions int
}

type SessionRegistry struct {
	validator CredentialValidator
	decoder   scancode.Decoder
	cfg       SessionRegistryConfig
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*VerificationSession
}

func NewSessionRegistry(validator CredentialValidator, decoder scancode.Decoder, cfg SessionRegistryConfig, logger *slog.Logger) *SessionRegistry {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		validator: validator,
		decoder:   decoder,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*VerificationSession),
	}
}

func (r *SessionRegistry) Create(ctx context.Context) (*VerificationSession, error) {
	now := r.now().UTC()
	events := NewEventRecorder(0)
	sess := &VerificationSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Events:    events,
		Pipeline:  NewPipeline(r.validator, r.decoder, events, WithPipelineLogger(r.logger)),
	}
	sess.touch(now)

	r.mu.Lock()
	if len(r.sessions) >= r.cfg.MaxSessions {
		r.mu.Unlock()
		observability.RecordVerificationSessionEvent(ctx, "create", "limit_reached")
		return nil, ErrSessionLimitReached
	}
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	observability.RecordVerificationSessionEvent(ctx, "create", "success")
	return sess, nil
}

// Get returns a live session and refreshes its idle timer.
func (r *SessionRegistry) Get(ctx context.Context, id string) (*VerificationSession, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		observability.RecordVerificationSessionEvent(ctx, "get", "not_found")
		return nil, ErrSessionNotFound
	}
	now := r.now()
	if now.Sub(sess.LastSeen()) > r.cfg.TTL {
		r.remove(id)
		sess.Pipeline.Cancel()
		observability.RecordVerificationSessionEvent(ctx, "get", "expired")
		return nil, ErrSessionNotFound
	}
	sess.touch(now)
	return sess, nil
}

// Close cancels any in-flight validation and forgets the session.
func (r *SessionRegistry) Close(ctx context.Context, id string) error {
	sess := r.remove(id)
	if sess == nil {
		observability.RecordVerificationSessionEvent(ctx, "close", "not_found")
		return ErrSessionNotFound
	}
	sess.Pipeline.Cancel()
	observability.RecordVerificationSessionEvent(ctx, "close", "success")
	return nil
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRegistry) remove(id string) *VerificationSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	return sess
}

func (r *SessionRegistry) SweepExpired(ctx context.Context, now time.Time) int {
	var expired []*VerificationSession
	r.mu.Lock()
	for id, sess := range r.sessions {
		if now.Sub(sess.LastSeen()) > r.cfg.TTL {
			delete(r.sessions, id)
			expired = append(expired, sess)
		}
	}
	r.mu.Unlock()

	for _, sess := range expired {
		sess.Pipeline.Cancel()
	}
	if len(expired) > 0 {
		observability.RecordVerificationSessionEvent(ctx, "sweep", "expired")
	}
	return len(expired)
}

func (r *SessionRegistry) RunSweepLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.SweepExpired(ctx, r.now()); n > 0 {
				r.logger.Info("verification sessions expired", "count", n)
			}
		}
	}
}
