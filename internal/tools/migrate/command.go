package migrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/event-credential-service/internal/database"
	"github.com/sandeepkv93/event-credential-service/internal/tools/common"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tooling",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newCommand(opts, "up", "Apply schema migrations", applyMigrations),
		newCommand(opts, "status", "Report which service tables exist", migrationStatus),
	)
	return cmd
}

func newCommand(opts *options, use, short string, fn func(context.Context, *gorm.DB) ([]string, error)) *cobra.Command {
	title := "migrate " + use
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
				return fn(ctx, db)
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

func applyMigrations(ctx context.Context, db *gorm.DB) ([]string, error) {
	if err := database.Migrate(db.WithContext(ctx)); err != nil {
		return nil, err
	}
	details := []string{"schema migration applied"}
	status, err := migrationStatus(ctx, db)
	if err != nil {
		return nil, err
	}
	return append(details, status...), nil
}

// migrationStatus fails when any table is missing so CI can gate on it.
func migrationStatus(ctx context.Context, db *gorm.DB) ([]string, error) {
	tables, err := database.Status(db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	details := make([]string, 0, len(tables))
	missing := 0
	for _, t := range tables {
		state := "present"
		if !t.Exists {
			state = "missing"
			missing++
		}
		details = append(details, fmt.Sprintf("%s: %s", t.Table, state))
	}
	if missing > 0 {
		return details, fmt.Errorf("%d of %d tables missing, run migrate up", missing, len(tables))
	}
	return details, nil
}
