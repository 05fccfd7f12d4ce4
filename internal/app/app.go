package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/event-credential-service/internal/config"
	"github.com/sandeepkv93/event-credential-service/internal/health"
	"github.com/sandeepkv93/event-credential-service/internal/observability"
	"github.com/sandeepkv93/event-credential-service/internal/service"
)

const (
	idempotencyCleanupBatchSize = 500
	sessionSweepInterval        = time.Minute
)

// Background is everything the API process runs next to the HTTP server.
type Background struct {
	Sessions    *service.SessionRegistry
	Idempotency *service.DBIdempotencyStore
	// Closers are released after the server has drained, e.g. the OCR client.
	Closers []io.Closer
}

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Readiness     *health.ProbeRunner
	Background    Background

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	cancelBackground context.CancelFunc
	wg               sync.WaitGroup
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	bg Background,
) *App {
	a := &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Readiness:     readiness,
		Background:    bg,
	}
	if cfg != nil {
		a.ShutdownTimeout = cfg.ShutdownTimeout
	}
	a.ShutdownHTTPDrainTimeout = a.ShutdownTimeout / 2
	a.ShutdownObservabilityTimeout = a.ShutdownTimeout * 2 / 5
	return a
}

// StartBackground launches the session sweeper and idempotency cleanup loops.
// They stop when ctx is cancelled or Shutdown runs.
func (a *App) StartBackground(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancelBackground = cancel

	if a.Background.Sessions != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Background.Sessions.RunSweepLoop(ctx, sessionSweepInterval)
		}()
	}
	if a.Background.Idempotency != nil {
		interval := 10 * time.Minute
		if a.Config != nil && a.Config.IdempotencyCleanupInterval > 0 {
			interval = a.Config.IdempotencyCleanupInterval
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Background.Idempotency.RunCleanupLoop(ctx, interval, idempotencyCleanupBatchSize, a.Logger)
		}()
	}
}

// Shutdown drains HTTP, stops background loops, flushes telemetry and closes
// the datastores, in that order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.Server != nil {
		httpCtx, cancel := withOptionalTimeout(ctx, a.ShutdownHTTPDrainTimeout)
		if err := a.Server.Shutdown(httpCtx); err != nil {
			a.Logger.Error("failed to shutdown http server", "error", err)
			errs = append(errs, err)
		}
		cancel()
	}

	if a.cancelBackground != nil {
		a.cancelBackground()
	}
	a.wg.Wait()

	for _, c := range a.Background.Closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.Logger.Error("failed to close background resource", "error", err)
			errs = append(errs, err)
		}
	}

	if a.Observability != nil {
		obsCtx, cancel := withOptionalTimeout(ctx, a.ShutdownObservabilityTimeout)
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
			errs = append(errs, err)
		}
		cancel()
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("failed to close database connection", "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
