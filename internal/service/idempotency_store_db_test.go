package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
)

func newIdempotencyDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.IdempotencyRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestDBIdempotencyStoreLifecycle(t *testing.T) {
	store := NewDBIdempotencyStore(newIdempotencyDBForTest(t))
	ctx := context.Background()

	res, err := store.Begin(ctx, "batches.issue", "key-1", "fp-a", time.Hour)
	if err != nil || res.State != IdempotencyStateNew {
		t.Fatalf("expected new, got %+v err=%v", res, err)
	}
	res, err = store.Begin(ctx, "batches.issue", "key-1", "fp-a", time.Hour)
	if err != nil || res.State != IdempotencyStateInProgress {
		t.Fatalf("expected in progress, got %+v err=%v", res, err)
	}
	res, err = store.Begin(ctx, "batches.issue", "key-1", "fp-b", time.Hour)
	if err != nil || res.State != IdempotencyStateConflict {
		t.Fatalf("expected conflict, got %+v err=%v", res, err)
	}

	body := []byte(`{"success":true}`)
	if err := store.Complete(ctx, "batches.issue", "key-1", "fp-a", CachedHTTPResponse{StatusCode: 201, ContentType: "application/json", Body: body}, time.Hour); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	res, err = store.Begin(ctx, "batches.issue", "key-1", "fp-a", time.Hour)
	if err != nil || res.State != IdempotencyStateReplay || res.Cached == nil {
		t.Fatalf("expected replay, got %+v err=%v", res, err)
	}
	if res.Cached.StatusCode != 201 || string(res.Cached.Body) != string(body) {
		t.Fatalf("unexpected cached response %+v", res.Cached)
	}

	// Completed records survive Abandon.
	if err := store.Abandon(ctx, "batches.issue", "key-1", "fp-a"); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if res, _ := store.Begin(ctx, "batches.issue", "key-1", "fp-a", time.Hour); res.State != IdempotencyStateReplay {
		t.Fatalf("expected replay after abandon of completed record, got %s", res.State)
	}
}

func TestDBIdempotencyStoreAbandonAllowsRetry(t *testing.T) {
	store := NewDBIdempotencyStore(newIdempotencyDBForTest(t))
	ctx := context.Background()

	if _, err := store.Begin(ctx, "batches.issue", "key-2", "fp", time.Hour); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Abandon(ctx, "batches.issue", "key-2", "fp"); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	res, err := store.Begin(ctx, "batches.issue", "key-2", "fp", time.Hour)
	if err != nil || res.State != IdempotencyStateNew {
		t.Fatalf("expected new after abandon, got %+v err=%v", res, err)
	}
}

func TestDBIdempotencyStoreExpiredRecordsResetAndCleanup(t *testing.T) {
	db := newIdempotencyDBForTest(t)
	store := NewDBIdempotencyStore(db)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "s", "old", "fp-1", -time.Minute); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	res, err := store.Begin(ctx, "s", "old", "fp-2", time.Hour)
	if err != nil || res.State != IdempotencyStateNew {
		t.Fatalf("expected expired record to reset, got %+v err=%v", res, err)
	}

	if _, err := store.Begin(ctx, "s", "stale-1", "fp", -time.Minute); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := store.Begin(ctx, "s", "stale-2", "fp", -time.Minute); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	deleted, err := store.CleanupExpired(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted rows, got %d", deleted)
	}
	var remaining int64
	db.Model(&domain.IdempotencyRecord{}).Count(&remaining)
	if remaining != 1 {
		t.Fatalf("expected 1 remaining record, got %d", remaining)
	}
}

func TestDBIdempotencyStoreReplayExpiresWithClock(t *testing.T) {
	store := NewDBIdempotencyStore(newIdempotencyDBForTest(t))
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := store.Begin(ctx, "batches.issue", "k", "fp", time.Minute); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Complete(ctx, "batches.issue", "k", "fp", CachedHTTPResponse{StatusCode: 201}, 10*time.Minute); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	now = now.Add(5 * time.Minute)
	if res, _ := store.Begin(ctx, "batches.issue", "k", "fp", time.Minute); res.State != IdempotencyStateReplay {
		t.Fatalf("expected replay inside completed ttl, got %s", res.State)
	}
	now = now.Add(6 * time.Minute)
	if res, _ := store.Begin(ctx, "batches.issue", "k", "fp", time.Minute); res.State != IdempotencyStateNew {
		t.Fatalf("expected new once the replay window passed, got %s", res.State)
	}
}

func TestClassifyIdempotencyRecord(t *testing.T) {
	done := domain.IdempotencyRecord{FingerprintHash: "fp", Status: idempotencyStatusCompleted, ResponseStatus: 201, ResponseBody: []byte("x")}
	if got := classifyIdempotencyRecord(done, "other"); got.State != IdempotencyStateConflict {
		t.Fatalf("expected conflict, got %s", got.State)
	}
	got := classifyIdempotencyRecord(done, "fp")
	if got.State != IdempotencyStateReplay || got.Cached.StatusCode != 201 {
		t.Fatalf("expected replay, got %+v", got)
	}
	got.Cached.Body[0] = 'y'
	if done.ResponseBody[0] != 'x' {
		t.Fatal("replayed body must be a copy")
	}
	pending := domain.IdempotencyRecord{FingerprintHash: "fp", Status: string(IdempotencyStateNew)}
	if got := classifyIdempotencyRecord(pending, "fp"); got.State != IdempotencyStateInProgress {
		t.Fatalf("expected in progress, got %s", got.State)
	}
}
