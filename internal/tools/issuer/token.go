package issuer

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/event-credential-service/internal/security"
	"github.com/sandeepkv93/event-credential-service/internal/tools/common"
)

func newTokenCommand(opts *options) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator bearer token for the issuance API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig(opts.envFile)
			if err != nil {
				return err
			}
			jwt := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTSecret, cfg.OperatorTokenTTL, cfg.ConfirmationTicketTTL)
			token, expiresAt, err := jwt.SignOperatorToken(subject)
			if opts.ci {
				common.PrintCIResult(err == nil, "issuer token", tokenDetails(token, subject, expiresAt), err)
				if err != nil {
					os.Exit(3)
				}
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "operator %q, expires %s\n", subject, expiresAt.UTC().Format(time.RFC3339))
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "operator name recorded in audit events")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func tokenDetails(token, subject string, expiresAt time.Time) []string {
	if token == "" {
		return nil
	}
	return []string{"subject=" + subject, "expires_at=" + expiresAt.UTC().Format(time.RFC3339), "token=" + token}
}
