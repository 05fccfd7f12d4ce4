package issuer

import (
	"log/slog"
	"os"

	"gorm.io/gorm"

	"github.com/sandeepkv93/event-credential-service/internal/config"
	"github.com/sandeepkv93/event-credential-service/internal/document"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
	"github.com/sandeepkv93/event-credential-service/internal/scancode"
	"github.com/sandeepkv93/event-credential-service/internal/service"
)

// cliLogger keeps service logs on stderr so stdout stays parseable in CI mode.
func cliLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg != nil && cfg.OTELLogLevel == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newDocumentStore(cfg *config.Config) (service.DocumentStore, error) {
	if !cfg.StorageEnabled {
		return service.NewMemoryDocumentStore(1), nil
	}
	return service.NewMinIODocumentStore(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageBucket, cfg.StorageUseSSL)
}

func newIssuanceService(cfg *config.Config, db *gorm.DB, store service.DocumentStore, logger *slog.Logger) *service.IssuanceService {
	generator := service.NewTokenGenerator(service.TokenGeneratorConfig{
		Prefix:             cfg.TokenPrefix,
		SuffixLength:       cfg.TokenSuffixLength,
		MaxAttemptsPerSlot: cfg.TokenMaxAttempts,
	})
	renderer := document.NewRenderer(scancode.NewQREncoder(), document.Config{
		Title:    cfg.DocumentTitle,
		Issuer:   cfg.DocumentIssuer,
		FileName: cfg.DocumentFileName,
	})
	return service.NewIssuanceService(
		repository.NewCredentialRepository(db),
		repository.NewIssuanceBatchRepository(db),
		generator,
		renderer,
		store,
		service.IssuanceConfig{MaxBatch: cfg.IssuanceMaxBatch, PersistConcurrency: cfg.IssuancePersistConcurrency},
		logger,
	)
}

// newDecoder returns the upload decoder and, when OCR is enabled, the client
// that must be closed afterwards.
func newDecoder(cfg *config.Config) (scancode.Decoder, func()) {
	qr := scancode.NewQRDecoder()
	if !cfg.VisionOCREnabled {
		return qr, func() {}
	}
	recognizer := scancode.NewVisionRecognizer(cfg.VisionCredentialsFile)
	return scancode.NewFallbackDecoder(qr, recognizer, cfg.TokenPrefix), func() { _ = recognizer.Close() }
}
