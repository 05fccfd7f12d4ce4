package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/observability"

	"gorm.io/gorm"
)

var sampleAttendees = []domain.Credential{
	{UniqueID: "UID-1700000000000-demo01", Name: "Asha Raman", Email: "asha@example.com", Mobile: "9000000001", FestName: "Techofes", Event: "Hackathon", CertificationType: "Participation", AchievementLevel: "Participant"},
	{UniqueID: "UID-1700000000000-demo02", Name: "Karthik Iyer", Email: "karthik@example.com", Mobile: "9000000002", FestName: "Techofes", Event: "Hackathon", CertificationType: "Merit", AchievementLevel: "Winner"},
	{UniqueID: "UID-1700000000000-demo03", Name: "Meera Nair", Email: "meera@example.com", Mobile: "9000000003", FestName: "Kurukshetra", Event: "Paper Presentation", CertificationType: "Merit", AchievementLevel: "Runner Up"},
	{UniqueID: "UID-1700000000000-demo04", Name: "Vikram Das", Email: "vikram@example.com", Mobile: "9000000004", FestName: "Kurukshetra", Event: "Quiz", CertificationType: "Participation", AchievementLevel: "Participant"},
}

// SeedReport counts what SeedSampleCredentials changed.
type SeedReport struct {
	Created int  `json:"created"`
	Skipped int  `json:"skipped"`
	Noop    bool `json:"noop"`
}

// SampleUniqueIDs lists the identifiers SeedSampleCredentials ensures exist.
func SampleUniqueIDs() []string {
	out := make([]string, 0, len(sampleAttendees))
	for _, c := range sampleAttendees {
		out = append(out, c.UniqueID)
	}
	return out
}

// SeedSampleCredentials inserts a fixed set of attendee credentials for local
// testing. Existing rows with the same unique id are left untouched.
func SeedSampleCredentials(db *gorm.DB, issuedAt time.Time) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "seed", time.Since(start))
	}()

	report := &SeedReport{}
	issued := issuedAt.UTC()
	for _, sample := range sampleAttendees {
		c := sample
		c.DateOfIssue = &issued
		res := db.Where("unique_id = ?", c.UniqueID).FirstOrCreate(&c)
		if res.Error != nil {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, fmt.Errorf("seed credential %s: %w", sample.UniqueID, res.Error)
		}
		if res.RowsAffected > 0 {
			report.Created++
		} else {
			report.Skipped++
		}
	}
	report.Noop = report.Created == 0
	observability.RecordDatabaseStartupEvent(context.Background(), "seed", "success")
	return report, nil
}

// ResetSampleValidation clears the validation state of the sample credentials
// so the verification flow can be exercised again.
func ResetSampleValidation(db *gorm.DB) (int64, error) {
	res := db.Model(&domain.Credential{}).
		Where("unique_id IN ?", SampleUniqueIDs()).
		Updates(map[string]any{"validation_status": false, "date_of_validation": nil})
	if res.Error != nil {
		return 0, fmt.Errorf("reset sample validation: %w", res.Error)
	}
	return res.RowsAffected, nil
}
