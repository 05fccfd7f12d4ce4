package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/event-credential-service/internal/database"
	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/tools/common"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Sample attendee credentials for local testing"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(
		newCommand(opts, "apply", "Insert sample credentials", applySeed),
		newCommand(opts, "dry-run", "Show which sample credentials would be inserted", dryRun),
		newCommand(opts, "reset-validation", "Mark sample credentials unvalidated again", resetValidation),
	)
	return cmd
}

func newCommand(opts *options, use, short string, fn func(context.Context, *gorm.DB) ([]string, error)) *cobra.Command {
	title := "seed " + use
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := common.Run(opts.ci, opts.timeout, title, func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				return fn(ctx, db.WithContext(ctx))
			})
			if opts.ci {
				common.PrintCIResult(err == nil, title, details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func applySeed(_ context.Context, db *gorm.DB) ([]string, error) {
	report, err := database.SeedSampleCredentials(db, time.Now())
	if err != nil {
		return nil, err
	}
	details := []string{fmt.Sprintf("created=%d", report.Created), fmt.Sprintf("skipped=%d", report.Skipped)}
	if report.Noop {
		details = append(details, "sample credentials already present")
	}
	return details, nil
}

func dryRun(_ context.Context, db *gorm.DB) ([]string, error) {
	ids := database.SampleUniqueIDs()
	var existing []string
	if err := db.Model(&domain.Credential{}).Where("unique_id IN ?", ids).Pluck("unique_id", &existing).Error; err != nil {
		return nil, fmt.Errorf("lookup sample credentials: %w", err)
	}
	present := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		present[id] = struct{}{}
	}
	details := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := present[id]; ok {
			details = append(details, "exists: "+id)
		} else {
			details = append(details, "would create: "+id)
		}
	}
	return details, nil
}

func resetValidation(_ context.Context, db *gorm.DB) ([]string, error) {
	n, err := database.ResetSampleValidation(db)
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("reset=%d", n)}, nil
}
