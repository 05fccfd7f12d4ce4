package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sandeepkv93/event-credential-service/internal/config"
	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/scancode"
	"github.com/sandeepkv93/event-credential-service/internal/service"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type noopValidator struct{}

func (noopValidator) MarkValidated(context.Context, string, time.Time) (*domain.Credential, bool, error) {
	return nil, false, errors.New("unused")
}

func TestNewDerivesShutdownBudgets(t *testing.T) {
	a := New(&config.Config{ShutdownTimeout: 20 * time.Second}, slog.Default(), nil, nil, nil, nil, nil, Background{})
	if a.ShutdownHTTPDrainTimeout != 10*time.Second || a.ShutdownObservabilityTimeout != 8*time.Second {
		t.Fatalf("unexpected budgets http=%v obs=%v", a.ShutdownHTTPDrainTimeout, a.ShutdownObservabilityTimeout)
	}
}

func TestShutdownStopsBackgroundAndClosesResources(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.IdempotencyRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	closed := false
	registry := service.NewSessionRegistry(noopValidator{}, scancode.NewQRDecoder(), service.SessionRegistryConfig{}, nil)
	a := New(&config.Config{ShutdownTimeout: time.Second, IdempotencyCleanupInterval: time.Hour}, slog.Default(), nil, nil, db, client, nil, Background{
		Sessions:    registry,
		Idempotency: service.NewDBIdempotencyStore(db),
		Closers:     []io.Closer{closerFunc(func() error { closed = true; return nil })},
	})

	a.StartBackground(context.Background())
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !closed {
		t.Fatal("expected background closer to run")
	}
	if err := client.Ping(context.Background()).Err(); err == nil {
		t.Fatal("expected redis client to be closed")
	}
	sqlDB, _ := db.DB()
	if err := sqlDB.Ping(); err == nil {
		t.Fatal("expected database to be closed")
	}
}

func TestShutdownJoinsCloserErrors(t *testing.T) {
	boom := errors.New("boom")
	a := New(&config.Config{ShutdownTimeout: time.Second}, slog.Default(), nil, nil, nil, nil, nil, Background{
		Closers: []io.Closer{closerFunc(func() error { return boom }), nil},
	})
	if err := a.Shutdown(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected joined closer error, got %v", err)
	}
}
