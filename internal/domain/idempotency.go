package domain

import "time"

type IdempotencyRecord struct {
	ID              uint   `gorm:"primaryKey"`
	Scope           string `gorm:"size:120;not null;uniqueIndex:idx_idempotency_scope_key"`
	IdempotencyKey  string `gorm:"size:128;not null;uniqueIndex:idx_idempotency_scope_key"`
	FingerprintHash string `gorm:"size:64;not null"`
	Status          string `gorm:"size:20;not null"`
	ResponseStatus  int    `gorm:"not null;default:0"`
	ResponseBody    []byte
	ContentType     string    `gorm:"size:120"`
	ExpiresAt       time.Time `gorm:"not null;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
