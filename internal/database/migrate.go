package database

import (
	"context"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"

	"gorm.io/gorm"
)

// Models lists every table owned by the service, in migration order.
func Models() []any {
	return []any{
		&domain.IssuanceBatch{},
		&domain.Credential{},
		&domain.IdempotencyRecord{},
	}
}

func Migrate(db *gorm.DB) error {
	start := time.Now()
	err := db.AutoMigrate(Models()...)
	observability.RecordDatabaseStartupDuration(context.Background(), "migrate", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "success")
	return nil
}

// TableStatus reports whether each service table exists.
type TableStatus struct {
	Table  string
	Exists bool
}

func Status(db *gorm.DB) ([]TableStatus, error) {
	out := make([]TableStatus, 0, len(Models()))
	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, err
		}
		out = append(out, TableStatus{
			Table:  stmt.Schema.Table,
			Exists: db.Migrator().HasTable(m),
		})
	}
	return out, nil
}
