package domain

import "time"

type IssuanceBatch struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Requested    int       `gorm:"not null" json:"requested"`
	Persisted    int       `gorm:"not null" json:"persisted"`
	Failed       int       `gorm:"not null" json:"failed"`
	Pages        int       `gorm:"not null" json:"pages"`
	DocumentName string    `gorm:"size:255;not null" json:"document_name"`
	DocumentKey  string    `gorm:"size:512" json:"document_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
