package service

import (
	"context"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
)

type IssuanceServiceInterface interface {
	PrepareConfirmation(ctx context.Context, raw string) (ConfirmationPrompt, error)
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)
	GetBatch(ctx context.Context, id uint) (*domain.IssuanceBatch, error)
	ListBatches(ctx context.Context, req repository.PageRequest) (repository.PageResult[domain.IssuanceBatch], error)
	OpenDocument(ctx context.Context, batchID uint) (*StoredDocument, error)
}

type CredentialServiceInterface interface {
	List(ctx context.Context, filter repository.CredentialFilter) (repository.PageResult[domain.Credential], error)
	Get(ctx context.Context, uniqueID string) (*domain.Credential, error)
}

type SessionRegistryInterface interface {
	Create(ctx context.Context) (*VerificationSession, error)
	Get(ctx context.Context, id string) (*VerificationSession, error)
	Close(ctx context.Context, id string) error
}
