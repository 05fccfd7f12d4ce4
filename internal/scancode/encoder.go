package scancode

import (
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultImageSize = 256

var ErrEmptyContent = errors.New("scancode: empty content")

// Encoder turns a credential token into a scannable code, either as a PNG or
// as the module matrix (true is a dark module, quiet zone included).
type Encoder interface {
	Encode(token string) ([]byte, error)
	Matrix(token string) ([][]bool, error)
}

type QREncoder struct {
	level qrcode.RecoveryLevel
	size  int
}

func NewQREncoder() *QREncoder {
	return &QREncoder{level: qrcode.Medium, size: DefaultImageSize}
}

func (e *QREncoder) Encode(token string) ([]byte, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrEmptyContent
	}
	png, err := qrcode.Encode(token, e.level, e.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

func (e *QREncoder) Matrix(token string) ([][]bool, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrEmptyContent
	}
	code, err := qrcode.New(token, e.level)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return code.Bitmap(), nil
}
