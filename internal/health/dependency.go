package health

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CheckFunc adapts a ping to Checker under a fixed result name.
type CheckFunc struct {
	Name string
	Ping func(ctx context.Context) error
}

func (c CheckFunc) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: c.Name, Healthy: true}
	if err := c.ping(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

var errNoPing = errors.New("no ping configured")

func (c CheckFunc) ping(ctx context.Context) error {
	if c.Ping == nil {
		return errNoPing
	}
	return c.Ping(ctx)
}

// NewDBChecker returns nil for a nil db so callers can skip unconfigured
// dependencies; ProbeRunner drops nil checkers.
func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return CheckFunc{Name: "db", Ping: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return CheckFunc{Name: "redis", Ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

// Pinger is satisfied by the document stores.
type Pinger interface {
	Ping(ctx context.Context) error
	Backend() string
}

func NewStorageChecker(store Pinger) Checker {
	if store == nil {
		return nil
	}
	return CheckFunc{Name: "storage:" + store.Backend(), Ping: store.Ping}
}
