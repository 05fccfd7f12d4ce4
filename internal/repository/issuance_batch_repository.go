package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
)

var ErrIssuanceBatchNotFound = errors.New("issuance batch not found")

type IssuanceBatchRepository interface {
	Create(ctx context.Context, batch *domain.IssuanceBatch) error
	Save(ctx context.Context, batch *domain.IssuanceBatch) error
	FindByID(ctx context.Context, id uint) (*domain.IssuanceBatch, error)
	ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.IssuanceBatch], error)
}

type GormIssuanceBatchRepository struct{ db *gorm.DB }

func NewIssuanceBatchRepository(db *gorm.DB) IssuanceBatchRepository {
	return &GormIssuanceBatchRepository{db: db}
}

func (r *GormIssuanceBatchRepository) Create(ctx context.Context, batch *domain.IssuanceBatch) error {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "issuance_batch", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "issuance_batch", "create", "success")
	return nil
}

func (r *GormIssuanceBatchRepository) Save(ctx context.Context, batch *domain.IssuanceBatch) error {
	res := r.db.WithContext(ctx).Model(&domain.IssuanceBatch{}).Where("id = ?", batch.ID).Updates(map[string]any{
		"requested":     batch.Requested,
		"persisted":     batch.Persisted,
		"failed":        batch.Failed,
		"pages":         batch.Pages,
		"document_name": batch.DocumentName,
		"document_key":  batch.DocumentKey,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "issuance_batch", "save", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "issuance_batch", "save", "not_found")
		return ErrIssuanceBatchNotFound
	}
	observability.RecordRepositoryOperation(ctx, "issuance_batch", "save", "success")
	return nil
}

func (r *GormIssuanceBatchRepository) FindByID(ctx context.Context, id uint) (*domain.IssuanceBatch, error) {
	var batch domain.IssuanceBatch
	if err := r.db.WithContext(ctx).First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "issuance_batch", "find_by_id", "not_found")
			return nil, ErrIssuanceBatchNotFound
		}
		observability.RecordRepositoryOperation(ctx, "issuance_batch", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "issuance_batch", "find_by_id", "success")
	return &batch, nil
}

func (r *GormIssuanceBatchRepository) ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.IssuanceBatch], error) {
	page, err := paginate[domain.IssuanceBatch](r.db.WithContext(ctx).Model(&domain.IssuanceBatch{}), req)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "issuance_batch", "list_paged", "error")
		return PageResult[domain.IssuanceBatch]{}, err
	}
	observability.RecordRepositoryOperation(ctx, "issuance_batch", "list_paged", "success")
	return page, nil
}
