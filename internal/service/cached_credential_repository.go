package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
)

const credentialListNamespace = "credentials"

// CachedCredentialRepository serves ListPaged from a ListCacheStore and drops
// the cached pages whenever a credential is created or first validated.
// Every other call goes straight to the wrapped repository.
type CachedCredentialRepository struct {
	repository.CredentialRepository
	cache  ListCacheStore
	ttl    time.Duration
	logger *slog.Logger
	sf     singleflight.Group
}

func NewCachedCredentialRepository(repo repository.CredentialRepository, cache ListCacheStore, ttl time.Duration, logger *slog.Logger) *CachedCredentialRepository {
	if cache == nil {
		cache = NoopListCacheStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCredentialRepository{CredentialRepository: repo, cache: cache, ttl: ttl, logger: logger}
}

func (r *CachedCredentialRepository) ListPaged(ctx context.Context, filter repository.CredentialFilter) (repository.PageResult[domain.Credential], error) {
	if r.ttl <= 0 {
		return r.CredentialRepository.ListPaged(ctx, filter)
	}
	key := credentialListKey(filter)
	if page, ok := r.cached(ctx, key); ok {
		observability.RecordListCacheEvent(ctx, credentialListNamespace, "hit")
		return page, nil
	}

	v, err, shared := r.sf.Do(key, func() (any, error) {
		if page, ok := r.cached(ctx, key); ok {
			return page, nil
		}
		page, err := r.CredentialRepository.ListPaged(ctx, filter)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(page); err == nil {
			if err := r.cache.Set(ctx, credentialListNamespace, key, payload, r.ttl); err != nil {
				r.logger.WarnContext(ctx, "credential list cache write failed", "error", err)
			}
		}
		return page, nil
	})
	if shared {
		observability.RecordListCacheEvent(ctx, credentialListNamespace, "singleflight_shared")
	} else {
		observability.RecordListCacheEvent(ctx, credentialListNamespace, "miss")
	}
	if err != nil {
		return repository.PageResult[domain.Credential]{}, err
	}
	page, ok := v.(repository.PageResult[domain.Credential])
	if !ok {
		return repository.PageResult[domain.Credential]{}, fmt.Errorf("invalid credential page type %T", v)
	}
	return page, nil
}

func (r *CachedCredentialRepository) Create(ctx context.Context, credential *domain.Credential) error {
	if err := r.CredentialRepository.Create(ctx, credential); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedCredentialRepository) MarkValidated(ctx context.Context, uniqueID string, at time.Time) (*domain.Credential, bool, error) {
	c, fresh, err := r.CredentialRepository.MarkValidated(ctx, uniqueID, at)
	if err == nil && fresh {
		r.invalidate(ctx)
	}
	return c, fresh, err
}

// cached treats store errors as misses; the database stays the source of truth.
func (r *CachedCredentialRepository) cached(ctx context.Context, key string) (repository.PageResult[domain.Credential], bool) {
	payload, ok, err := r.cache.Get(ctx, credentialListNamespace, key)
	if err != nil {
		r.logger.WarnContext(ctx, "credential list cache read failed", "error", err)
		return repository.PageResult[domain.Credential]{}, false
	}
	if !ok {
		return repository.PageResult[domain.Credential]{}, false
	}
	var page repository.PageResult[domain.Credential]
	if err := json.Unmarshal(payload, &page); err != nil {
		return repository.PageResult[domain.Credential]{}, false
	}
	return page, true
}

func (r *CachedCredentialRepository) invalidate(ctx context.Context) {
	if r.ttl <= 0 {
		return
	}
	if err := r.cache.InvalidateNamespace(ctx, credentialListNamespace); err != nil {
		observability.RecordListCacheEvent(ctx, credentialListNamespace, "invalidate_error")
		r.logger.WarnContext(ctx, "credential list cache invalidation failed", "error", err)
		return
	}
	observability.RecordListCacheEvent(ctx, credentialListNamespace, "invalidate")
}

func credentialListKey(f repository.CredentialFilter) string {
	validated := "any"
	if f.Validated != nil {
		validated = strconv.FormatBool(*f.Validated)
	}
	batch := "any"
	if f.BatchID != nil {
		batch = strconv.FormatUint(uint64(*f.BatchID), 10)
	}
	req := f.PageRequest.Normalize()
	return fmt.Sprintf("page=%d:size=%d:validated=%s:batch=%s", req.Page, req.PageSize, validated, batch)
}
