package di

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/event-credential-service/internal/app"
	"github.com/sandeepkv93/event-credential-service/internal/config"
	"github.com/sandeepkv93/event-credential-service/internal/database"
	"github.com/sandeepkv93/event-credential-service/internal/document"
	"github.com/sandeepkv93/event-credential-service/internal/health"
	"github.com/sandeepkv93/event-credential-service/internal/http/handler"
	"github.com/sandeepkv93/event-credential-service/internal/http/middleware"
	"github.com/sandeepkv93/event-credential-service/internal/http/router"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
	"github.com/sandeepkv93/event-credential-service/internal/scancode"
	"github.com/sandeepkv93/event-credential-service/internal/security"
	"github.com/sandeepkv93/event-credential-service/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideDocumentStore,
	provideScanDecoder,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	provideCredentialRepository,
	repository.NewIssuanceBatchRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
)

var ServiceSet = wire.NewSet(
	provideTokenGenerator,
	provideRenderer,
	provideIssuanceService,
	service.NewCredentialService,
	provideSessionRegistry,
	provideLookupGuard,
	service.NewDBIdempotencyStore,
	wire.Bind(new(service.IssuanceServiceInterface), new(*service.IssuanceService)),
	wire.Bind(new(service.CredentialServiceInterface), new(*service.CredentialService)),
	wire.Bind(new(service.SessionRegistryInterface), new(*service.SessionRegistry)),
	wire.Bind(new(service.IdempotencyStore), new(*service.DBIdempotencyStore)),
	wire.Bind(new(service.DocumentRenderer), new(*document.Renderer)),
)

var HTTPSet = wire.NewSet(
	wire.Bind(new(handler.ConfirmationTickets), new(*security.JWTManager)),
	handler.NewBatchHandler,
	handler.NewCredentialHandler,
	provideVerificationHandler,
	provideAPIRateLimiter,
	provideVerifyRateLimiter,
	provideIdempotencyMiddlewareFactory,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideBackground, provideApp)

type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) DB() *gorm.DB { return m.db }

func (m *MigrationRunner) Run() error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	fmt.Println("migration complete")
	return nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

// provideDocumentStore archives batch PDFs in MinIO when storage is enabled
// and keeps a bounded in-memory archive otherwise.
func provideDocumentStore(cfg *config.Config) (service.DocumentStore, error) {
	if !cfg.StorageEnabled {
		return service.NewMemoryDocumentStore(cfg.DocumentMemoryStoreLimit), nil
	}
	return service.NewMinIODocumentStore(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageBucket, cfg.StorageUseSSL)
}

// ScanDecoder pairs the decoder used for uploads with anything it holds open.
type ScanDecoder struct {
	scancode.Decoder
	closer io.Closer
}

func provideScanDecoder(cfg *config.Config) ScanDecoder {
	qr := scancode.NewQRDecoder()
	if !cfg.VisionOCREnabled {
		return ScanDecoder{Decoder: qr}
	}
	recognizer := scancode.NewVisionRecognizer(cfg.VisionCredentialsFile)
	return ScanDecoder{
		Decoder: scancode.NewFallbackDecoder(qr, recognizer, cfg.TokenPrefix),
		closer:  recognizer,
	}
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTSecret, cfg.OperatorTokenTTL, cfg.ConfirmationTicketTTL)
}

func provideTokenGenerator(cfg *config.Config) *service.TokenGenerator {
	return service.NewTokenGenerator(service.TokenGeneratorConfig{
		Prefix:             cfg.TokenPrefix,
		SuffixLength:       cfg.TokenSuffixLength,
		MaxAttemptsPerSlot: cfg.TokenMaxAttempts,
	})
}

func provideRenderer(cfg *config.Config) *document.Renderer {
	return document.NewRenderer(scancode.NewQREncoder(), document.Config{
		Title:    cfg.DocumentTitle,
		Issuer:   cfg.DocumentIssuer,
		FileName: cfg.DocumentFileName,
	})
}

func provideIssuanceService(
	cfg *config.Config,
	creds repository.CredentialRepository,
	batches repository.IssuanceBatchRepository,
	generator *service.TokenGenerator,
	renderer service.DocumentRenderer,
	store service.DocumentStore,
	logger *slog.Logger,
) *service.IssuanceService {
	return service.NewIssuanceService(creds, batches, generator, renderer, store, service.IssuanceConfig{
		MaxBatch:           cfg.IssuanceMaxBatch,
		PersistConcurrency: cfg.IssuancePersistConcurrency,
	}, logger)
}

// provideCredentialRepository fronts the listing endpoint with a page cache,
// shared through redis when it is enabled. A zero TTL disables caching.
func provideCredentialRepository(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, logger *slog.Logger) repository.CredentialRepository {
	base := repository.NewCredentialRepository(db)
	if cfg.CredentialListCacheTTL <= 0 {
		return base
	}
	var store service.ListCacheStore = service.NewInMemoryListCacheStore()
	if cfg.RedisEnabled && redisClient != nil {
		store = service.NewRedisListCacheStore(redisClient, "list_cache")
	}
	return service.NewCachedCredentialRepository(base, store, cfg.CredentialListCacheTTL, logger)
}

func provideSessionRegistry(cfg *config.Config, creds repository.CredentialRepository, decoder ScanDecoder, logger *slog.Logger) *service.SessionRegistry {
	return service.NewSessionRegistry(creds, decoder.Decoder, service.SessionRegistryConfig{
		TTL:         cfg.VerificationSessionTTL,
		MaxSessions: cfg.VerificationMaxSessions,
	}, logger)
}

// provideLookupGuard shares miss counters through redis when it is enabled so
// every replica sees the same cooldowns.
func provideLookupGuard(cfg *config.Config, redisClient redis.UniversalClient) service.LookupGuard {
	if !cfg.LookupGuardEnabled {
		return service.NoopLookupGuard{}
	}
	policy := service.LookupGuardPolicy{
		FreeMisses:  cfg.LookupGuardFreeMisses,
		BaseDelay:   cfg.LookupGuardBaseDelay,
		Multiplier:  2,
		MaxDelay:    cfg.LookupGuardMaxDelay,
		ResetWindow: cfg.LookupGuardResetWindow,
	}
	if cfg.RedisEnabled && redisClient != nil {
		return service.NewRedisLookupGuard(redisClient, cfg.RateLimitRedisPrefix+":lookup", policy)
	}
	return service.NewInMemoryLookupGuard(policy)
}

func provideVerificationHandler(cfg *config.Config, sessions service.SessionRegistryInterface, guard service.LookupGuard) *handler.VerificationHandler {
	return handler.NewVerificationHandler(sessions, guard, cfg.VerifyUploadMaxBytes)
}

func rateLimitFailureMode(cfg *config.Config) middleware.FailureMode {
	if cfg.RateLimitFailClosed {
		return middleware.FailClosed
	}
	return middleware.FailOpen
}

func sharedLimiter(cfg *config.Config, redisClient redis.UniversalClient) (middleware.Limiter, middleware.FailureMode) {
	if cfg.RedisEnabled && redisClient != nil {
		return middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix), rateLimitFailureMode(cfg)
	}
	return middleware.NewLocalFixedWindowLimiter(), middleware.FailClosed
}

// provideAPIRateLimiter keys operator traffic by token subject so desks
// sharing a NAT do not throttle each other.
func provideAPIRateLimiter(cfg *config.Config, redisClient redis.UniversalClient, jwt *security.JWTManager) router.APIRateLimiterFunc {
	limiter, mode := sharedLimiter(cfg, redisClient)
	return middleware.NewRateLimiter(limiter, middleware.RateLimitPolicy{
		Scope:  "api",
		Limit:  cfg.APIRateLimitPerMin,
		Window: time.Minute,
		Mode:   mode,
		Key:    middleware.OperatorOrIPKeyFunc(jwt),
	}).Middleware()
}

func provideVerifyRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.VerifyRateLimiterFunc {
	limiter, mode := sharedLimiter(cfg, redisClient)
	return middleware.NewRateLimiter(limiter, middleware.RateLimitPolicy{
		Scope:  "verify",
		Limit:  cfg.VerifyRateLimitPerMin,
		Window: time.Minute,
		Mode:   mode,
	}).Middleware()
}

func provideIdempotencyMiddlewareFactory(cfg *config.Config, store service.IdempotencyStore) router.IdempotencyMiddlewareFactory {
	mw := middleware.NewIdempotencyMiddleware(store, cfg.IdempotencyTTL)
	return mw.Middleware
}

func provideRouterDependencies(
	batchHandler *handler.BatchHandler,
	credentialHandler *handler.CredentialHandler,
	verificationHandler *handler.VerificationHandler,
	jwt *security.JWTManager,
	apiRateLimiter router.APIRateLimiterFunc,
	verifyRateLimiter router.VerifyRateLimiterFunc,
	idempotency router.IdempotencyMiddlewareFactory,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		BatchHandler:        batchHandler,
		CredentialHandler:   credentialHandler,
		VerificationHandler: verificationHandler,
		JWTManager:          jwt,
		CORSOrigins:         cfg.CORSAllowedOrigins,
		APIRateLimitRPM:     cfg.APIRateLimitPerMin,
		VerifyRateLimitRPM:  cfg.VerifyRateLimitPerMin,
		UploadMaxBytes:      cfg.VerifyUploadMaxBytes,
		APIRateLimiter:      apiRateLimiter,
		VerifyRateLimiter:   verifyRateLimiter,
		Idempotency:         idempotency,
		Readiness:           readiness,
		EnableOTelHTTP:      cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

// provideHTTPServer allows a longer write timeout than a JSON API needs since
// large batches render and stream a PDF in the same request.
func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, store service.DocumentStore) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 3)
	if c := health.NewDBChecker(db); c != nil {
		checkers = append(checkers, c)
	}
	if cfg.RedisEnabled {
		if c := health.NewRedisChecker(redisClient); c != nil {
			checkers = append(checkers, c)
		}
	}
	if cfg.StorageEnabled {
		if c := health.NewStorageChecker(store); c != nil {
			checkers = append(checkers, c)
		}
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideBackground(sessions *service.SessionRegistry, idempotency *service.DBIdempotencyStore, decoder ScanDecoder) app.Background {
	bg := app.Background{Sessions: sessions, Idempotency: idempotency}
	if decoder.closer != nil {
		bg.Closers = append(bg.Closers, decoder.closer)
	}
	return bg
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	bg app.Background,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness, bg)
}
