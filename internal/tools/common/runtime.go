package common

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/event-credential-service/internal/config"
	"github.com/sandeepkv93/event-credential-service/internal/database"
	"github.com/sandeepkv93/event-credential-service/internal/tools/ui"
)

// Run executes fn directly with a timeout in CI mode and behind the
// interactive progress view otherwise.
func Run(ci bool, timeout time.Duration, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if ci {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, timeout, fn)
}

func LoadConfig(envFile string) (*config.Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return config.Load()
}

// LoadConfigDB loads configuration and opens the database. Callers close the
// returned handle with CloseDB.
func LoadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
