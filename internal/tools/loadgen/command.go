package loadgen

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/event-credential-service/internal/database"
	"github.com/sandeepkv93/event-credential-service/internal/tools/common"
)

// NewRootCommand mounts under the issuer CLI; --ci is inherited from it.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "loadgen", Short: "Generate verification traffic against a running API"}
	cmd.AddCommand(newRunCommand(), newProfilesCommand())
	return cmd
}

func newRunCommand() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive verification sessions for a fixed duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ci, _ := cmd.Flags().GetBool("ci")
			if len(cfg.UniqueIDs) == 0 {
				cfg.UniqueIDs = database.SampleUniqueIDs()
			}
			title := fmt.Sprintf("loadgen %s", cfg.Profile)
			details, err := common.Run(ci, cfg.Duration+15*time.Second, title, func(ctx context.Context) ([]string, error) {
				res, err := Run(ctx, cfg)
				if err != nil {
					return nil, err
				}
				return res.Details(), nil
			})
			if ci {
				common.PrintCIResult(err == nil, title, details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	f.StringVar(&cfg.Profile, "profile", "verify", "traffic profile: "+strings.Join(Profiles, "|"))
	f.DurationVar(&cfg.Duration, "duration", 15*time.Second, "how long to generate traffic")
	f.IntVar(&cfg.RPS, "rps", 20, "requests per second across all clients")
	f.IntVar(&cfg.Concurrency, "concurrency", 6, "concurrent verifying clients")
	f.StringSliceVar(&cfg.UniqueIDs, "id", nil, "credential ids to submit (defaults to the seeded samples)")
	return cmd
}

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List traffic profiles",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, p := range Profiles {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d steps per session loop\n", p, len(stepsForProfile(p, database.SampleUniqueIDs())))
			}
		},
	}
}
