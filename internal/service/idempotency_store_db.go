package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
)

const defaultIdempotencyCleanupBatch = 500

var errIdempotencyInsertRace = errors.New("idempotency key inserted concurrently")

// DBIdempotencyStore keeps one row per (scope, key). Rows are locked for the
// duration of Begin so two retries of the same batch request cannot both
// come back as new.
type DBIdempotencyStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBIdempotencyStore(db *gorm.DB) *DBIdempotencyStore {
	return &DBIdempotencyStore{db: db, now: time.Now}
}

func (s *DBIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	res, err := s.begin(ctx, scope, key, fingerprint, ttl)
	if errors.Is(err, errIdempotencyInsertRace) {
		res, err = s.begin(ctx, scope, key, fingerprint, ttl)
	}
	if err != nil {
		observability.RecordIdempotencyEvent(ctx, scope, "error")
		return IdempotencyBeginResult{}, err
	}
	observability.RecordIdempotencyEvent(ctx, scope, string(res.State))
	return res, nil
}

func (s *DBIdempotencyStore) begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	now := s.now().UTC()
	var out IdempotencyBeginResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec domain.IdempotencyRecord
		err := byScopeKey(tx.Clauses(clause.Locking{Strength: "UPDATE"}), scope, key).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = domain.IdempotencyRecord{Scope: scope, IdempotencyKey: key}
			resetIdempotencyRecord(&rec, fingerprint, now.Add(ttl))
			if err := tx.Create(&rec).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errIdempotencyInsertRace
				}
				return err
			}
			out.State = IdempotencyStateNew
			return nil
		case err != nil:
			return err
		}

		if !rec.ExpiresAt.After(now) {
			resetIdempotencyRecord(&rec, fingerprint, now.Add(ttl))
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
			out.State = IdempotencyStateNew
			return nil
		}
		out = classifyIdempotencyRecord(rec, fingerprint)
		return nil
	})
	if err != nil {
		return IdempotencyBeginResult{}, err
	}
	return out, nil
}

// classifyIdempotencyRecord decides what a live row means for a request
// carrying fingerprint.
func classifyIdempotencyRecord(rec domain.IdempotencyRecord, fingerprint string) IdempotencyBeginResult {
	switch {
	case rec.FingerprintHash != fingerprint:
		return IdempotencyBeginResult{State: IdempotencyStateConflict}
	case rec.Status == idempotencyStatusCompleted:
		return IdempotencyBeginResult{
			State: IdempotencyStateReplay,
			Cached: &CachedHTTPResponse{
				StatusCode:  rec.ResponseStatus,
				ContentType: rec.ContentType,
				Body:        append([]byte(nil), rec.ResponseBody...),
			},
		}
	default:
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}
	}
}

func resetIdempotencyRecord(rec *domain.IdempotencyRecord, fingerprint string, expiresAt time.Time) {
	rec.FingerprintHash = fingerprint
	rec.Status = string(IdempotencyStateNew)
	rec.ResponseStatus = 0
	rec.ResponseBody = nil
	rec.ContentType = ""
	rec.ExpiresAt = expiresAt
}

func (s *DBIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	return pendingRecord(s.db.WithContext(ctx), scope, key, fingerprint).
		Updates(map[string]any{
			"status":          idempotencyStatusCompleted,
			"response_status": response.StatusCode,
			"response_body":   response.Body,
			"content_type":    response.ContentType,
			"expires_at":      s.now().UTC().Add(ttl),
		}).Error
}

// Abandon drops an in-flight record so the same key can be retried after the
// handler failed without producing a cacheable response.
func (s *DBIdempotencyStore) Abandon(ctx context.Context, scope, key, fingerprint string) error {
	return pendingRecord(s.db.WithContext(ctx), scope, key, fingerprint).
		Delete(&domain.IdempotencyRecord{}).Error
}

func byScopeKey(tx *gorm.DB, scope, key string) *gorm.DB {
	return tx.Where("scope = ? AND idempotency_key = ?", scope, key)
}

func pendingRecord(tx *gorm.DB, scope, key, fingerprint string) *gorm.DB {
	return byScopeKey(tx.Model(&domain.IdempotencyRecord{}), scope, key).
		Where("fingerprint_hash = ? AND status <> ?", fingerprint, idempotencyStatusCompleted)
}

// CleanupExpired deletes at most batchSize expired rows, oldest first.
func (s *DBIdempotencyStore) CleanupExpired(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = defaultIdempotencyCleanupBatch
	}
	db := s.db.WithContext(ctx)
	expired := db.Model(&domain.IdempotencyRecord{}).
		Select("id").
		Where("expires_at <= ?", now.UTC()).
		Order("id ASC").
		Limit(batchSize)
	res := db.Where("id IN (?)", expired).Delete(&domain.IdempotencyRecord{})
	if res.Error != nil {
		observability.RecordIdempotencyCleanupRun(ctx, "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordIdempotencyCleanupRun(ctx, "success")
	observability.RecordIdempotencyCleanupDeletedRows(ctx, res.RowsAffected)
	return res.RowsAffected, nil
}

func (s *DBIdempotencyStore) RunCleanupLoop(ctx context.Context, interval time.Duration, batchSize int, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		deleted, err := s.CleanupExpired(ctx, s.now(), batchSize)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "idempotency cleanup failed", "error", err)
		case deleted > 0:
			logger.InfoContext(ctx, "idempotency cleanup removed expired records", "deleted", deleted)
		}
	}
}
