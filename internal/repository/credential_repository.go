package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrDuplicateUniqueID  = errors.New("credential unique id already exists")
)

// CredentialFilter narrows ListPaged. A nil Validated returns every row.
type CredentialFilter struct {
	PageRequest
	Validated *bool
	BatchID   *uint
}

type CredentialRepository interface {
	List(ctx context.Context) ([]domain.Credential, error)
	ListUniqueIDs(ctx context.Context) ([]string, error)
	Create(ctx context.Context, credential *domain.Credential) error
	FindByUniqueID(ctx context.Context, uniqueID string) (*domain.Credential, error)
	// MarkValidated flips validation_status to true and stamps
	// date_of_validation with at, only if the credential is not yet
	// validated. The bool reports whether this call did the flip.
	MarkValidated(ctx context.Context, uniqueID string, at time.Time) (*domain.Credential, bool, error)
	ListPaged(ctx context.Context, filter CredentialFilter) (PageResult[domain.Credential], error)
}

type GormCredentialRepository struct{ db *gorm.DB }

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &GormCredentialRepository{db: db}
}

func (r *GormCredentialRepository) List(ctx context.Context) ([]domain.Credential, error) {
	var out []domain.Credential
	if err := r.db.WithContext(ctx).Order("id asc").Find(&out).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "credential", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "credential", "list", "success")
	return out, nil
}

func (r *GormCredentialRepository) ListUniqueIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&domain.Credential{}).Pluck("unique_id", &ids).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "credential", "list_unique_ids", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "credential", "list_unique_ids", "success")
	return ids, nil
}

func (r *GormCredentialRepository) Create(ctx context.Context, credential *domain.Credential) error {
	if err := r.db.WithContext(ctx).Create(credential).Error; err != nil {
		if isUniqueViolation(err) {
			observability.RecordRepositoryOperation(ctx, "credential", "create", "conflict")
			return ErrDuplicateUniqueID
		}
		observability.RecordRepositoryOperation(ctx, "credential", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "credential", "create", "success")
	return nil
}

func (r *GormCredentialRepository) FindByUniqueID(ctx context.Context, uniqueID string) (*domain.Credential, error) {
	c, err := findCredential(r.db.WithContext(ctx), uniqueID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			observability.RecordRepositoryOperation(ctx, "credential", "find_by_unique_id", "not_found")
			return nil, err
		}
		observability.RecordRepositoryOperation(ctx, "credential", "find_by_unique_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "credential", "find_by_unique_id", "success")
	return c, nil
}

func (r *GormCredentialRepository) MarkValidated(ctx context.Context, uniqueID string, at time.Time) (*domain.Credential, bool, error) {
	var (
		out   *domain.Credential
		fresh bool
	)
	stamp := at.UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Credential{}).
			Where("unique_id = ? AND validation_status = ?", uniqueID, false).
			Updates(map[string]any{
				"validation_status":  true,
				"date_of_validation": stamp,
			})
		if res.Error != nil {
			return res.Error
		}
		fresh = res.RowsAffected == 1
		c, err := findCredential(tx, uniqueID)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			observability.RecordRepositoryOperation(ctx, "credential", "mark_validated", "not_found")
			return nil, false, err
		}
		observability.RecordRepositoryOperation(ctx, "credential", "mark_validated", "error")
		return nil, false, err
	}
	if fresh {
		observability.RecordRepositoryOperation(ctx, "credential", "mark_validated", "success")
	} else {
		observability.RecordRepositoryOperation(ctx, "credential", "mark_validated", "already_validated")
	}
	return out, fresh, nil
}

func (r *GormCredentialRepository) ListPaged(ctx context.Context, filter CredentialFilter) (PageResult[domain.Credential], error) {
	q := r.db.WithContext(ctx).Model(&domain.Credential{})
	if filter.Validated != nil {
		q = q.Where("validation_status = ?", *filter.Validated)
	}
	if filter.BatchID != nil {
		q = q.Where("batch_id = ?", *filter.BatchID)
	}
	page, err := paginate[domain.Credential](q, filter.PageRequest)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "credential", "list_paged", "error")
		return PageResult[domain.Credential]{}, err
	}
	observability.RecordRepositoryOperation(ctx, "credential", "list_paged", "success")
	return page, nil
}

func findCredential(db *gorm.DB, uniqueID string) (*domain.Credential, error) {
	var c domain.Credential
	if err := db.Where("unique_id = ?", uniqueID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
