package scancode

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	vision "cloud.google.com/go/vision/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/sandeepkv93/event-credential-service/internal/observability"
)

// TextRecognizer extracts printed text from an image.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, img []byte) (string, error)
}

// VisionRecognizer uses Google Cloud Vision text detection. The client is
// created on first use; credentials come from GOOGLE_APPLICATION_CREDENTIALS
// unless a file is given explicitly.
type VisionRecognizer struct {
	credentialsFile string

	once    sync.Once
	client  *vision.ImageAnnotatorClient
	initErr error
}

func NewVisionRecognizer(credentialsFile string) *VisionRecognizer {
	return &VisionRecognizer{credentialsFile: credentialsFile}
}

func (v *VisionRecognizer) lazyInit(ctx context.Context) error {
	v.once.Do(func() {
		var opts []option.ClientOption
		if v.credentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(v.credentialsFile))
		}
		client, err := vision.NewImageAnnotatorClient(ctx, opts...)
		if err != nil {
			v.initErr = fmt.Errorf("init vision client: %w", err)
			return
		}
		v.client = client
	})
	return v.initErr
}

func (v *VisionRecognizer) RecognizeText(ctx context.Context, img []byte) (string, error) {
	if err := v.lazyInit(ctx); err != nil {
		return "", err
	}
	anns, err := v.client.DetectTexts(ctx, &visionpb.Image{Content: img}, nil, 1)
	if err != nil {
		return "", fmt.Errorf("detect text: %w", err)
	}
	if len(anns) == 0 {
		return "", nil
	}
	return anns[0].Description, nil
}

func (v *VisionRecognizer) Close() error {
	if v.client == nil {
		return nil
	}
	return v.client.Close()
}

// FallbackDecoder tries the primary decoder first and, when no code is found,
// looks for a printed token in the text returned by the recognizer.
type FallbackDecoder struct {
	primary    Decoder
	recognizer TextRecognizer
	prefix     string
	pattern    *regexp.Regexp
}

func NewFallbackDecoder(primary Decoder, recognizer TextRecognizer, tokenPrefix string) *FallbackDecoder {
	return &FallbackDecoder{
		primary:    primary,
		recognizer: recognizer,
		prefix:     tokenPrefix,
		pattern:    TokenPattern(tokenPrefix),
	}
}

// TokenPattern matches tokens of the form <prefix>-<digits>-<base36>,
// case-insensitively.
func TokenPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(prefix) + `-\d+-[a-z0-9]+`)
}

func (d *FallbackDecoder) Decode(ctx context.Context, img []byte) DecodeResult {
	res := d.primary.Decode(ctx, img)
	if res.OK() || d.recognizer == nil || errors.Is(res.Failure, ErrEmptyImage) {
		return res
	}
	text, err := d.recognizer.RecognizeText(ctx, img)
	if err != nil {
		observability.RecordScancodeDecode(ctx, "ocr", "error")
		return res
	}
	match := d.pattern.FindString(text)
	if match == "" {
		observability.RecordScancodeDecode(ctx, "ocr", "not_found")
		return res
	}
	observability.RecordScancodeDecode(ctx, "ocr", "decoded")
	return decoded(d.prefix + strings.ToLower(match[len(d.prefix):]))
}
