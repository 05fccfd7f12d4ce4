package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sandeepkv93/event-credential-service/internal/document"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
)

const (
	documentPathPrefix = "documents"
	presignedURLTTL    = 15 * time.Minute
)

var (
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrUploadFailed         = errors.New("failed to upload document")
	ErrDownloadFailed       = errors.New("failed to download document")
	ErrDocumentNotFound     = errors.New("document not found in store")
	ErrURLGenerationFailed  = errors.New("failed to generate presigned URL")
	ErrPresignUnsupported   = errors.New("document store does not support presigned URLs")
	ErrInvalidObjectKey     = errors.New("invalid document object key")
)

// StoredDocument is an archived batch document as read back from a store.
type StoredDocument struct {
	Key         string
	Name        string
	ContentType string
	Pages       int
	Bytes       []byte
}

// DocumentStore archives rendered batch documents so they can be downloaded
// after the issuing request has finished.
type DocumentStore interface {
	// Put archives doc and returns the object key it was stored under.
	Put(ctx context.Context, doc *document.Document) (string, error)

	// Get loads a previously archived document by key.
	Get(ctx context.Context, key string) (*StoredDocument, error)

	// PresignedURL returns a time-limited download URL for key.
	// Stores that cannot produce one return ErrPresignUnsupported.
	PresignedURL(ctx context.Context, key string) (string, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Backend names the implementation for logs and metrics.
	Backend() string
}

// MinIODocumentStore implements DocumentStore using MinIO/S3-compatible storage.
type MinIODocumentStore struct {
	client     *minio.Client
	bucketName string
	now        func() time.Time
	initOnce   sync.Once
	initErr    error
}

// NewMinIODocumentStore creates a MinIO-backed document store.
// Bucket creation is deferred until the first operation to avoid blocking app startup.
func NewMinIODocumentStore(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIODocumentStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIODocumentStore{
		client:     client,
		bucketName: bucketName,
		now:        time.Now,
	}, nil
}

func (s *MinIODocumentStore) Backend() string { return "minio" }

// lazyInit ensures the bucket exists on first use (not at startup).
func (s *MinIODocumentStore) lazyInit(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.ensureBucketExists(ctx)
	})
	return s.initErr
}

// ensureBucketExists creates the bucket if it doesn't exist.
func (s *MinIODocumentStore) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}

	return nil
}

// Put uploads the PDF bytes under documents/<yyyy>/<mm>/<uuid>.pdf.
// The original file name and page count travel as object metadata.
func (s *MinIODocumentStore) Put(ctx context.Context, doc *document.Document) (key string, err error) {
	defer func() { observability.RecordDocumentArchiveEvent(ctx, s.Backend(), "put", archiveOutcome(err)) }()

	if doc == nil || len(doc.Bytes) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrUploadFailed)
	}

	// Lazy init AFTER validation passes (defers MinIO connection until necessary)
	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}

	key = newDocumentKey(s.now())
	metadata := map[string]string{
		"Document-Name": doc.Name,
		"Pages":         strconv.Itoa(doc.Pages),
		"Generated-At":  doc.GeneratedAt.UTC().Format(time.RFC3339),
	}

	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(doc.Bytes), int64(len(doc.Bytes)), minio.PutObjectOptions{
		ContentType:        document.ContentType,
		ContentDisposition: attachmentDisposition(doc.Name),
		UserMetadata:       metadata,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return key, nil
}

// Get downloads an archived document. A missing object maps to ErrDocumentNotFound.
func (s *MinIODocumentStore) Get(ctx context.Context, key string) (_ *StoredDocument, err error) {
	defer func() { observability.RecordDocumentArchiveEvent(ctx, s.Backend(), "get", archiveOutcome(err)) }()

	// Validate input BEFORE connecting to MinIO
	if err := validateDocumentKey(key); err != nil {
		return nil, err
	}
	if err := s.lazyInit(ctx); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinIOError(err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, classifyMinIOError(err)
	}
	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyMinIOError(err)
	}

	pages, _ := strconv.Atoi(info.UserMetadata["Pages"])
	name := info.UserMetadata["Document-Name"]
	if name == "" {
		name = document.DefaultFileName
	}
	return &StoredDocument{
		Key:         key,
		Name:        name,
		ContentType: info.ContentType,
		Pages:       pages,
		Bytes:       body,
	}, nil
}

// PresignedURL generates a presigned GET URL for an archived document.
func (s *MinIODocumentStore) PresignedURL(ctx context.Context, key string) (string, error) {
	if err := validateDocumentKey(key); err != nil {
		return "", err
	}
	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucketName, key, presignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrURLGenerationFailed, err)
	}

	return presignedURL.String(), nil
}

// Ping checks that the bucket is reachable, creating it if needed.
func (s *MinIODocumentStore) Ping(ctx context.Context) error {
	if err := s.lazyInit(ctx); err != nil {
		return err
	}
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

// classifyMinIOError maps S3 "not found" codes to ErrDocumentNotFound.
func classifyMinIOError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrDocumentNotFound
	}
	return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
}

// MemoryDocumentStore keeps the most recent documents in process memory.
// It is used when object storage is disabled; archived documents do not
// survive a restart.
type MemoryDocumentStore struct {
	mu    sync.Mutex
	limit int
	now   func() time.Time
	docs  map[string]StoredDocument
	order []string
}

func NewMemoryDocumentStore(limit int) *MemoryDocumentStore {
	if limit <= 0 {
		limit = 32
	}
	return &MemoryDocumentStore{
		limit: limit,
		now:   time.Now,
		docs:  make(map[string]StoredDocument, limit),
	}
}

func (s *MemoryDocumentStore) Backend() string { return "memory" }

func (s *MemoryDocumentStore) Put(ctx context.Context, doc *document.Document) (key string, err error) {
	defer func() { observability.RecordDocumentArchiveEvent(ctx, s.Backend(), "put", archiveOutcome(err)) }()
	if doc == nil || len(doc.Bytes) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrUploadFailed)
	}

	key = newDocumentKey(s.now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = StoredDocument{
		Key:         key,
		Name:        doc.Name,
		ContentType: document.ContentType,
		Pages:       doc.Pages,
		Bytes:       append([]byte(nil), doc.Bytes...),
	}
	s.order = append(s.order, key)
	for len(s.order) > s.limit {
		delete(s.docs, s.order[0])
		s.order = s.order[1:]
	}
	return key, nil
}

func (s *MemoryDocumentStore) Get(ctx context.Context, key string) (_ *StoredDocument, err error) {
	defer func() { observability.RecordDocumentArchiveEvent(ctx, s.Backend(), "get", archiveOutcome(err)) }()
	if err := validateDocumentKey(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	doc, ok := s.docs[key]
	s.mu.Unlock()
	if !ok {
		return nil, ErrDocumentNotFound
	}
	doc.Bytes = append([]byte(nil), doc.Bytes...)
	return &doc, nil
}

func (s *MemoryDocumentStore) PresignedURL(context.Context, string) (string, error) {
	return "", ErrPresignUnsupported
}

func (s *MemoryDocumentStore) Ping(context.Context) error { return nil }

func newDocumentKey(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s.pdf", documentPathPrefix, now.Year(), int(now.Month()), uuid.NewString())
}

func validateDocumentKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.Contains(key, "..") || !strings.HasPrefix(key, documentPathPrefix+"/") {
		return ErrInvalidObjectKey
	}
	return nil
}

func attachmentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}

func archiveOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDocumentNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidObjectKey):
		return "invalid_key"
	default:
		return "error"
	}
}
