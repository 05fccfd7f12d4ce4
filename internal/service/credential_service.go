package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
)

type CredentialService struct {
	repo repository.CredentialRepository
}

func NewCredentialService(repo repository.CredentialRepository) *CredentialService {
	return &CredentialService{repo: repo}
}

func (s *CredentialService) List(ctx context.Context, filter repository.CredentialFilter) (repository.PageResult[domain.Credential], error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordIssuanceOperation(ctx, "list_credentials", outcome, time.Since(start)) }()

	res, err := s.repo.ListPaged(ctx, filter)
	if err != nil {
		outcome = "error"
		return repository.PageResult[domain.Credential]{}, err
	}
	return res, nil
}

func (s *CredentialService) Get(ctx context.Context, uniqueID string) (*domain.Credential, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordIssuanceOperation(ctx, "get_credential", outcome, time.Since(start)) }()

	uniqueID = strings.TrimSpace(uniqueID)
	if uniqueID == "" {
		outcome = "not_found"
		return nil, ErrCredentialNotFound
	}
	c, err := s.repo.FindByUniqueID(ctx, uniqueID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			outcome = "not_found"
			return nil, ErrCredentialNotFound
		}
		outcome = "error"
		return nil, err
	}
	return c, nil
}
