package domain

import (
	"strings"
	"time"
)

type Credential struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UniqueID          string     `gorm:"column:unique_id;size:64;not null;uniqueIndex" json:"unique_id"`
	Name              string     `gorm:"size:160" json:"name"`
	Email             string     `gorm:"size:255" json:"email"`
	Mobile            string     `gorm:"size:32" json:"mobile"`
	FestName          string     `gorm:"size:160" json:"fest_name"`
	Event             string     `gorm:"size:160" json:"event"`
	CertificationType string     `gorm:"size:80" json:"certification_type"`
	AchievementLevel  string     `gorm:"size:80" json:"achievement_level"`
	DateOfIssue       *time.Time `json:"date_of_issue,omitempty"`
	ValidationStatus  bool       `gorm:"not null;default:false;index" json:"validation_status"`
	DateOfValidation  *time.Time `json:"date_of_validation,omitempty"`
	BatchID           *uint      `gorm:"index" json:"batch_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Summary is the optional metadata line printed under the id on the sheet.
func (c Credential) Summary() string {
	parts := make([]string, 0, 3)
	if v := strings.TrimSpace(c.Name); v != "" {
		parts = append(parts, "Name: "+v)
	}
	if v := strings.TrimSpace(c.Event); v != "" {
		parts = append(parts, "Event: "+v)
	}
	if v := strings.TrimSpace(c.CertificationType); v != "" {
		parts = append(parts, "Type: "+v)
	}
	return strings.Join(parts, " | ")
}
