package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// LookupGuardPolicy shapes the cooldown applied to public verification after
// repeated lookups of identifiers that do not exist.
type LookupGuardPolicy struct {
	FreeMisses  int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	ResetWindow time.Duration
}

// LookupGuard slows down identifier guessing. Misses are counted per client
// address and per verification session; the longer of the two cooldowns
// applies. Successful validations do not reset the count.
type LookupGuard interface {
	Check(ctx context.Context, client, session string) (time.Duration, error)
	RegisterMiss(ctx context.Context, client, session string) (time.Duration, error)
}

type NoopLookupGuard struct{}

func (NoopLookupGuard) Check(context.Context, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopLookupGuard) RegisterMiss(context.Context, string, string) (time.Duration, error) {
	return 0, nil
}

type lookupMissEntry struct {
	misses        int
	lastMissAt    time.Time
	cooldownUntil time.Time
}

type InMemoryLookupGuard struct {
	mu     sync.Mutex
	policy LookupGuardPolicy
	data   map[string]lookupMissEntry
	now    func() time.Time
}

func NewInMemoryLookupGuard(policy LookupGuardPolicy) *InMemoryLookupGuard {
	return &InMemoryLookupGuard{
		policy: normalizeLookupGuardPolicy(policy),
		data:   make(map[string]lookupMissEntry),
		now:    time.Now,
	}
}

func (g *InMemoryLookupGuard) Check(_ context.Context, client, session string) (time.Duration, error) {
	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	return max(
		g.activeCooldownLocked(now, lookupGuardKey("client", client)),
		g.activeCooldownLocked(now, lookupGuardKey("session", session)),
	), nil
}

func (g *InMemoryLookupGuard) RegisterMiss(_ context.Context, client, session string) (time.Duration, error) {
	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	return max(
		g.bumpLocked(now, lookupGuardKey("client", client)),
		g.bumpLocked(now, lookupGuardKey("session", session)),
	), nil
}

func (g *InMemoryLookupGuard) bumpLocked(now time.Time, key string) time.Duration {
	entry := g.data[key]
	if entry.lastMissAt.IsZero() || now.Sub(entry.lastMissAt) > g.policy.ResetWindow {
		entry.misses = 0
	}
	entry.misses++
	entry.lastMissAt = now
	delay := g.policy.delayFor(entry.misses)
	entry.cooldownUntil = now.Add(delay)
	g.data[key] = entry
	return delay
}

func (g *InMemoryLookupGuard) activeCooldownLocked(now time.Time, key string) time.Duration {
	entry, ok := g.data[key]
	if !ok {
		return 0
	}
	if now.Sub(entry.lastMissAt) > g.policy.ResetWindow {
		delete(g.data, key)
		return 0
	}
	if !now.Before(entry.cooldownUntil) {
		return 0
	}
	return entry.cooldownUntil.Sub(now)
}

func (p LookupGuardPolicy) delayFor(misses int) time.Duration {
	if misses <= p.FreeMisses {
		return 0
	}
	power := math.Pow(p.Multiplier, float64(misses-p.FreeMisses-1))
	delay := time.Duration(float64(p.BaseDelay) * power)
	if delay > p.MaxDelay || delay < 0 {
		return p.MaxDelay
	}
	return delay
}

// lookupGuardKey hashes the dimension value so raw client addresses are not
// kept as map or redis keys.
func lookupGuardKey(dim, value string) string {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		v = "unknown"
	}
	sum := sha256.Sum256([]byte(v))
	return fmt.Sprintf("%s:%s", dim, hex.EncodeToString(sum[:12]))
}

func normalizeLookupGuardPolicy(policy LookupGuardPolicy) LookupGuardPolicy {
	if policy.FreeMisses < 0 {
		policy.FreeMisses = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 2
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = 5 * time.Minute
	}
	if policy.ResetWindow <= 0 {
		policy.ResetWindow = 15 * time.Minute
	}
	return policy
}
