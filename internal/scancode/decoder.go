package scancode

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/sandeepkv93/event-credential-service/internal/observability"
)

var (
	ErrEmptyImage      = errors.New("scancode: empty image")
	ErrUnreadableImage = errors.New("scancode: image could not be decoded")
	ErrNoCodeFound     = errors.New("scancode: no code found in image")
)

// DecodeResult carries either a token or the reason none was found.
type DecodeResult struct {
	Token   string
	Failure error
}

func (r DecodeResult) OK() bool {
	return r.Failure == nil && r.Token != ""
}

func decoded(token string) DecodeResult { return DecodeResult{Token: token} }

func failed(err error) DecodeResult { return DecodeResult{Failure: err} }

// Decoder reads a credential token out of an uploaded image.
type Decoder interface {
	Decode(ctx context.Context, img []byte) DecodeResult
}

type QRDecoder struct{}

func NewQRDecoder() *QRDecoder {
	return &QRDecoder{}
}

func (d *QRDecoder) Decode(ctx context.Context, raw []byte) DecodeResult {
	res := d.decode(raw)
	observability.RecordScancodeDecode(ctx, "qr", decodeOutcome(res))
	return res
}

func (d *QRDecoder) decode(raw []byte) DecodeResult {
	if len(raw) == 0 {
		return failed(ErrEmptyImage)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return failed(ErrUnreadableImage)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return failed(ErrUnreadableImage)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return failed(ErrNoCodeFound)
	}
	token := strings.TrimSpace(result.GetText())
	if token == "" {
		return failed(ErrNoCodeFound)
	}
	return decoded(token)
}

func decodeOutcome(res DecodeResult) string {
	switch {
	case res.OK():
		return "decoded"
	case errors.Is(res.Failure, ErrNoCodeFound):
		return "not_found"
	case errors.Is(res.Failure, ErrEmptyImage):
		return "empty"
	default:
		return "unreadable"
	}
}
