package issuer

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/event-credential-service/internal/tools/loadgen"
	"github.com/sandeepkv93/event-credential-service/internal/tools/migrate"
	"github.com/sandeepkv93/event-credential-service/internal/tools/seed"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

// NewRootCommand assembles the operator CLI.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "issuer",
		Short:         "Issue and verify event credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newIssueCommand(opts),
		newVerifyCommand(opts),
		newTokenCommand(opts),
		migrate.NewRootCommand(),
		seed.NewRootCommand(),
		loadgen.NewRootCommand(),
	)
	return cmd
}
