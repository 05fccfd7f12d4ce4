package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	reg := NewSessionRegistry(newStubValidator("UID-1-abc"), stubDecoder{}, SessionRegistryConfig{MaxSessions: 2}, nil)
	ctx := context.Background()

	a, err := reg.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reg.Create(ctx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reg.Create(ctx); !errors.Is(err, ErrSessionLimitReached) {
		t.Fatalf("expected ErrSessionLimitReached, got %v", err)
	}

	got, err := reg.Get(ctx, a.ID)
	if err != nil || got != a {
		t.Fatalf("Get: %v", err)
	}
	if res, _ := got.Pipeline.SubmitManual(ctx, "UID-1-abc"); res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success through session pipeline, got %+v", res)
	}
	if len(got.Events.Events()) == 0 {
		t.Fatal("expected session events to be recorded")
	}

	if err := reg.Close(ctx, a.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := reg.Get(ctx, a.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := reg.Close(ctx, a.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on double close, got %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", reg.Len())
	}
}

func TestSessionRegistryExpiresIdleSessions(t *testing.T) {
	reg := NewSessionRegistry(newStubValidator(), stubDecoder{}, SessionRegistryConfig{TTL: time.Minute}, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }
	ctx := context.Background()

	idle, _ := reg.Create(ctx)
	active, _ := reg.Create(ctx)

	now = now.Add(45 * time.Second)
	if _, err := reg.Get(ctx, active.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}

	now = now.Add(30 * time.Second)
	if n := reg.SweepExpired(ctx, now); n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}
	if _, err := reg.Get(ctx, idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected idle session gone, got %v", err)
	}
	if _, err := reg.Get(ctx, active.ID); err != nil {
		t.Fatalf("expected active session alive, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := reg.Get(ctx, active.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected lazy expiry on Get, got %v", err)
	}
}
