package issuer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/event-credential-service/internal/service"
	"github.com/sandeepkv93/event-credential-service/internal/tools/common"
	"github.com/sandeepkv93/event-credential-service/internal/tools/ui"
)

var errCIRequiresYes = errors.New("--ci requires --yes: there is no one to confirm the batch")

type issueOptions struct {
	count string
	out   string
	yes   bool
}

func newIssueCommand(opts *options) *cobra.Command {
	io := &issueOptions{}
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Generate a batch of credentials and write the PDF sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := issueWithConfig(cmd.Context(), opts, io)
			if opts.ci {
				common.PrintCIResult(err == nil, "issuer issue", details, err)
			}
			if err != nil {
				if errors.Is(err, service.ErrIssuanceNotConfirmed) {
					fmt.Fprintln(os.Stderr, "cancelled: nothing was generated")
					os.Exit(2)
				}
				if !opts.ci {
					fmt.Fprintln(os.Stderr, err)
				}
				os.Exit(3)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&io.count, "count", "", "number of credentials to generate")
	cmd.Flags().StringVar(&io.out, "out", "", "output PDF path (defaults to the configured document name)")
	cmd.Flags().BoolVar(&io.yes, "yes", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

func issueWithConfig(ctx context.Context, opts *options, io *issueOptions) ([]string, error) {
	if opts.ci && !io.yes {
		return nil, errCIRequiresYes
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, db, err := common.LoadConfigDB(opts.envFile)
	if err != nil {
		return nil, err
	}
	defer common.CloseDB(db)

	store, err := newDocumentStore(cfg)
	if err != nil {
		return nil, err
	}
	svc := newIssuanceService(cfg, db, store, cliLogger(cfg))

	// The prompt runs before the progress view; both need the terminal.
	confirmer, err := promptConfirmer(ctx, svc, io)
	if err != nil {
		return nil, err
	}
	return common.Run(opts.ci, opts.timeout, "issuer issue", func(ctx context.Context) ([]string, error) {
		return issueBatch(ctx, svc, io.count, confirmer, io.out)
	})
}

// promptConfirmer asks the operator up front and answers the service's
// confirmation with that decision. --yes confirms without asking.
func promptConfirmer(ctx context.Context, svc service.IssuanceServiceInterface, io *issueOptions) (service.Confirmer, error) {
	if io.yes {
		return service.ConfirmerFunc(func(context.Context, service.ConfirmationPrompt) (bool, error) { return true, nil }), nil
	}
	prompt, err := svc.PrepareConfirmation(ctx, io.count)
	if err != nil {
		return nil, err
	}
	ok, err := ui.Confirm("issuer issue", prompt.Message)
	if err != nil {
		return nil, err
	}
	return service.ConfirmerFunc(func(_ context.Context, p service.ConfirmationPrompt) (bool, error) {
		return ok && p.Count == prompt.Count, nil
	}), nil
}

func issueBatch(ctx context.Context, svc service.IssuanceServiceInterface, count string, confirmer service.Confirmer, out string) ([]string, error) {
	res, err := svc.Issue(ctx, service.IssueRequest{Count: count, Confirmer: confirmer})
	if err != nil {
		return nil, err
	}
	if out == "" {
		out = res.Document.Name
	}
	if err := os.WriteFile(out, res.Document.Bytes, 0o644); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	details := []string{
		fmt.Sprintf("batch_id=%d", res.BatchID),
		fmt.Sprintf("persisted=%d", res.Persisted),
		fmt.Sprintf("failed=%d", res.Failed),
		fmt.Sprintf("pages=%d", res.Document.Pages),
		"document=" + out,
	}
	if res.DocumentKey != "" {
		details = append(details, "archived="+res.DocumentKey)
	}
	for _, f := range res.Failures {
		details = append(details, fmt.Sprintf("not stored: #%d %s: %v", f.Index+1, f.UniqueID, f.Err))
	}
	return details, nil
}
