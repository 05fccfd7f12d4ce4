package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/event-credential-service/internal/document"
	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
)

const DefaultPersistConcurrency = 4

// ConfirmationPrompt is what the operator is asked before anything is stored.
type ConfirmationPrompt struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt ConfirmationPrompt) (bool, error)
}

type ConfirmerFunc func(ctx context.Context, prompt ConfirmationPrompt) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt ConfirmationPrompt) (bool, error) {
	return f(ctx, prompt)
}

// GenerationProgress is emitted after every persistence attempt completes.
type GenerationProgress struct {
	Completed int
	Failures  int
	Total     int
}

type ProgressFunc func(GenerationProgress)

type IssueRequest struct {
	Count     string
	Confirmer Confirmer
	Progress  ProgressFunc
}

type IssueResult struct {
	BatchID     uint
	Credentials []domain.Credential
	Persisted   int
	Failed      int
	Failures    []PersistenceError
	Document    *document.Document
	DocumentKey string
}

type DocumentRenderer interface {
	Render(ctx context.Context, creds []domain.Credential, opts document.RenderOptions) (*document.Document, error)
}

type IssuanceConfig struct {
	MaxBatch           int
	PersistConcurrency int
}

type IssuanceService struct {
	creds     repository.CredentialRepository
	batches   repository.IssuanceBatchRepository
	generator *TokenGenerator
	renderer  DocumentRenderer
	store     DocumentStore
	cfg       IssuanceConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewIssuanceService(
	creds repository.CredentialRepository,
	batches repository.IssuanceBatchRepository,
	generator *TokenGenerator,
	renderer DocumentRenderer,
	store DocumentStore,
	cfg IssuanceConfig,
	logger *slog.Logger,
) *IssuanceService {
	if cfg.PersistConcurrency <= 0 {
		cfg.PersistConcurrency = DefaultPersistConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IssuanceService{
		creds:     creds,
		batches:   batches,
		generator: generator,
		renderer:  renderer,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func confirmationMessage(n int) string {
	return fmt.Sprintf("Are you sure you want to generate %d QR codes and download the PDF?", n)
}

func (s *IssuanceService) PrepareConfirmation(ctx context.Context, raw string) (ConfirmationPrompt, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordIssuanceOperation(ctx, "prepare", outcome, time.Since(start)) }()

	n, err := ParseCount(raw, s.cfg.MaxBatch)
	if err != nil {
		outcome = "bad_request"
		return ConfirmationPrompt{}, err
	}
	return ConfirmationPrompt{Count: n, Message: confirmationMessage(n)}, nil
}

// Issue runs one bulk issuance: validate the count, generate distinct
// identifiers against a snapshot of the known set, ask for confirmation,
// persist each credential independently and render every generated
// credential into one document.
func (s *IssuanceService) Issue(ctx context.Context, req IssueRequest) (_ *IssueResult, err error) {
	ctx, span := otel.Tracer("issuance").Start(ctx, "issuance.issue")
	defer span.End()
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RecordIssuanceOperation(ctx, "issue", outcome, time.Since(start))
	}()

	n, err := ParseCount(req.Count, s.cfg.MaxBatch)
	if err != nil {
		outcome = "bad_request"
		return nil, err
	}
	span.SetAttributes(attribute.Int("issuance.requested", n))
	observability.RecordIssuanceBatchSize(ctx, n)

	known, err := s.creds.ListUniqueIDs(ctx)
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("snapshot known identifiers: %w", err)
	}
	tokens, err := s.generator.Generate(n, known)
	if err != nil {
		outcome = "generation_exhausted"
		return nil, err
	}

	if req.Confirmer == nil {
		outcome = "not_confirmed"
		return nil, ErrIssuanceNotConfirmed
	}
	ok, err := req.Confirmer.Confirm(ctx, ConfirmationPrompt{Count: n, Message: confirmationMessage(n)})
	if err != nil {
		outcome = "confirm_error"
		return nil, err
	}
	if !ok {
		outcome = "not_confirmed"
		return nil, ErrIssuanceNotConfirmed
	}

	issuedAt := s.now().UTC()
	batch := s.beginBatch(ctx, n)
	var batchID *uint
	if batch != nil {
		id := batch.ID
		batchID = &id
	}

	creds := make([]domain.Credential, n)
	for i, token := range tokens {
		at := issuedAt
		creds[i] = domain.Credential{UniqueID: token, DateOfIssue: &at, BatchID: batchID}
	}

	failures := s.persistAll(ctx, creds, req.Progress)
	result := &IssueResult{
		Credentials: creds,
		Persisted:   n - len(failures),
		Failed:      len(failures),
		Failures:    failures,
	}
	if batch != nil {
		result.BatchID = batch.ID
	}
	span.SetAttributes(
		attribute.Int("issuance.persisted", result.Persisted),
		attribute.Int("issuance.failed", result.Failed),
	)

	if result.Persisted == 0 {
		outcome = "persist_failed"
		s.finishBatch(ctx, batch, result)
		return nil, &AggregatePersistenceError{Attempted: n, Failures: failures}
	}

	doc, err := s.renderer.Render(ctx, creds, document.RenderOptions{GeneratedAt: issuedAt})
	if err != nil {
		outcome = "render_error"
		s.finishBatch(ctx, batch, result)
		return nil, err
	}
	result.Document = doc

	if s.store != nil {
		key, putErr := s.store.Put(ctx, doc)
		if putErr != nil {
			s.logger.WarnContext(ctx, "archive batch document failed", "batch_id", result.BatchID, "backend", s.store.Backend(), "error", putErr)
		} else {
			result.DocumentKey = key
		}
	}
	s.finishBatch(ctx, batch, result)

	if result.Failed > 0 {
		outcome = "partial"
	}
	s.logger.InfoContext(ctx, "issuance batch completed",
		"batch_id", result.BatchID,
		"requested", n,
		"persisted", result.Persisted,
		"failed", result.Failed,
		"pages", doc.Pages,
	)
	return result, nil
}

// persistAll stores each credential independently with bounded parallelism.
// Failures are collected by index and returned in generation order.
func (s *IssuanceService) persistAll(ctx context.Context, creds []domain.Credential, progress ProgressFunc) []PersistenceError {
	errs := make([]error, len(creds))
	var (
		mu       sync.Mutex
		done     int
		failures int
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.PersistConcurrency)
	for i := range creds {
		g.Go(func() error {
			err := s.creds.Create(ctx, &creds[i])
			errs[i] = err
			if err != nil {
				observability.RecordIssuancePersistResult(ctx, "failure")
			} else {
				observability.RecordIssuancePersistResult(ctx, "success")
			}

			mu.Lock()
			done++
			if err != nil {
				failures++
			}
			snapshot := GenerationProgress{Completed: done, Failures: failures, Total: len(creds)}
			if progress != nil {
				progress(snapshot)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var out []PersistenceError
	for i, err := range errs {
		if err == nil {
			continue
		}
		s.logger.WarnContext(ctx, "persist credential failed", "unique_id", creds[i].UniqueID, "index", i, "error", err)
		out = append(out, PersistenceError{UniqueID: creds[i].UniqueID, Index: i, Err: err})
	}
	return out
}

func (s *IssuanceService) beginBatch(ctx context.Context, n int) *domain.IssuanceBatch {
	batch := &domain.IssuanceBatch{Requested: n, DocumentName: document.DefaultFileName}
	if err := s.batches.Create(ctx, batch); err != nil {
		s.logger.WarnContext(ctx, "record issuance batch failed", "requested", n, "error", err)
		return nil
	}
	return batch
}

func (s *IssuanceService) finishBatch(ctx context.Context, batch *domain.IssuanceBatch, result *IssueResult) {
	if batch == nil {
		return
	}
	batch.Persisted = result.Persisted
	batch.Failed = result.Failed
	batch.DocumentKey = result.DocumentKey
	if result.Document != nil {
		batch.Pages = result.Document.Pages
		batch.DocumentName = result.Document.Name
	}
	if err := s.batches.Save(ctx, batch); err != nil {
		s.logger.WarnContext(ctx, "update issuance batch failed", "batch_id", batch.ID, "error", err)
	}
}

func (s *IssuanceService) GetBatch(ctx context.Context, id uint) (*domain.IssuanceBatch, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordIssuanceOperation(ctx, "get_batch", outcome, time.Since(start)) }()

	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrIssuanceBatchNotFound) {
			outcome = "not_found"
			return nil, ErrBatchNotFound
		}
		outcome = "error"
		return nil, err
	}
	return batch, nil
}

func (s *IssuanceService) ListBatches(ctx context.Context, req repository.PageRequest) (repository.PageResult[domain.IssuanceBatch], error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordIssuanceOperation(ctx, "list_batches", outcome, time.Since(start)) }()

	res, err := s.batches.ListPaged(ctx, req)
	if err != nil {
		outcome = "error"
		return repository.PageResult[domain.IssuanceBatch]{}, err
	}
	return res, nil
}

// OpenDocument loads the archived document for a batch.
func (s *IssuanceService) OpenDocument(ctx context.Context, batchID uint) (*StoredDocument, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordIssuanceOperation(ctx, "open_document", outcome, time.Since(start)) }()

	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		outcome = "not_found"
		return nil, err
	}
	if batch.DocumentKey == "" || s.store == nil {
		outcome = "unavailable"
		return nil, ErrDocumentUnavailable
	}
	doc, err := s.store.Get(ctx, batch.DocumentKey)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			outcome = "unavailable"
			return nil, ErrDocumentUnavailable
		}
		outcome = "error"
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = batch.DocumentName
	}
	return doc, nil
}

// DocumentURL returns a presigned download link for the batch document when
// the store supports it.
func (s *IssuanceService) DocumentURL(ctx context.Context, batchID uint) (string, error) {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return "", err
	}
	if batch.DocumentKey == "" || s.store == nil {
		return "", ErrDocumentUnavailable
	}
	return s.store.PresignedURL(ctx, batch.DocumentKey)
}
