package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/config"
	"github.com/sandeepkv93/event-credential-service/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite://"

// Open connects to DATABASE_URL. A sqlite:// prefix selects the sqlite
// driver with the remainder used as its DSN; anything else goes to postgres.
func Open(cfg *config.Config) (*gorm.DB, error) {
	start := time.Now()
	db, err := gorm.Open(dialectorFor(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	observability.RecordDatabaseStartupDuration(context.Background(), "connect", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "connect", "error")
		return nil, fmt.Errorf("open database: %w", err)
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "connect", "success")
	return db, nil
}

func dialectorFor(url string) gorm.Dialector {
	if strings.HasPrefix(url, sqliteScheme) {
		return sqlite.Open(strings.TrimPrefix(url, sqliteScheme))
	}
	return postgres.Open(url)
}
