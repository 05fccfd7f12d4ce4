package issuer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
	"github.com/sandeepkv93/event-credential-service/internal/repository"
	"github.com/sandeepkv93/event-credential-service/internal/service"
	"github.com/sandeepkv93/event-credential-service/internal/tools/common"
)

var errVerifyInput = errors.New("exactly one of --text, --image or --scan is required")

type verifyOptions struct {
	text  string
	image string
	scan  string
}

func newVerifyCommand(opts *options) *cobra.Command {
	vo := &verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Validate one credential by id, scanned token or image",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := verifyWithConfig(opts, vo)
			if opts.ci {
				common.PrintCIResult(err == nil, "issuer verify", details, err)
			}
			if err != nil {
				if !opts.ci {
					fmt.Fprintln(os.Stderr, err)
				}
				os.Exit(3)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&vo.text, "text", "", "typed credential id")
	cmd.Flags().StringVar(&vo.image, "image", "", "path to a photo or scan of the printed code")
	cmd.Flags().StringVar(&vo.scan, "scan", "", "token read by an external scanner")
	return cmd
}

func (o *verifyOptions) validate() error {
	set := 0
	for _, v := range []string{o.text, o.image, o.scan} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return errVerifyInput
	}
	return nil
}

func verifyWithConfig(opts *options, vo *verifyOptions) ([]string, error) {
	if err := vo.validate(); err != nil {
		return nil, err
	}
	var img []byte
	if vo.image != "" {
		raw, err := os.ReadFile(vo.image)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		img = raw
	}

	cfg, db, err := common.LoadConfigDB(opts.envFile)
	if err != nil {
		return nil, err
	}
	defer common.CloseDB(db)
	decoder, closeDecoder := newDecoder(cfg)
	defer closeDecoder()

	pipeline := service.NewPipeline(repository.NewCredentialRepository(db), decoder, nil, service.WithPipelineLogger(cliLogger(cfg)))
	return common.Run(opts.ci, opts.timeout, "issuer verify", func(ctx context.Context) ([]string, error) {
		return verifyOnce(ctx, pipeline, vo, img)
	})
}

// verifyOnce submits a single trigger. A rejection is reported as an error so
// scripts see a non-zero exit.
func verifyOnce(ctx context.Context, p *service.Pipeline, vo *verifyOptions, img []byte) ([]string, error) {
	var (
		res service.ValidationResult
		err error
	)
	switch {
	case vo.text != "":
		res, err = p.SubmitManual(ctx, vo.text)
	case vo.scan != "":
		res, err = p.SubmitScan(ctx, vo.scan)
	default:
		res, err = p.SubmitImage(ctx, img)
	}
	if err != nil {
		return nil, err
	}
	details := []string{"outcome=" + string(res.Outcome)}
	if res.Outcome == service.OutcomeRejected {
		reason := res.Reason()
		if reason == "" && res.Err != nil {
			reason = res.Err.Error()
		}
		return details, fmt.Errorf("rejected: %s", reason)
	}
	if res.Credential != nil {
		details = append(details, credentialLines(*res.Credential, res.AlreadyValidated)...)
	}
	return details, nil
}

func credentialLines(c domain.Credential, alreadyValidated bool) []string {
	lines := []string{"unique_id=" + c.UniqueID}
	if alreadyValidated {
		lines = append(lines, "status=already validated")
	} else {
		lines = append(lines, "status=validated now")
	}
	for _, kv := range [][2]string{
		{"name", c.Name},
		{"event", c.Event},
		{"fest", c.FestName},
		{"certification", c.CertificationType},
		{"achievement", c.AchievementLevel},
	} {
		if kv[1] != "" {
			lines = append(lines, kv[0]+"="+kv[1])
		}
	}
	if c.DateOfValidation != nil {
		lines = append(lines, "validated_at="+c.DateOfValidation.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return lines
}
