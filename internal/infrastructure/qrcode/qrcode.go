// Package qrcode renders the verification QR code printed on receipts.
package qrcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/config"
)

// Error correction levels accepted in configuration.
const (
	LevelLow     = "low"
	LevelMedium  = "medium"
	LevelHigh    = "high"
	LevelHighest = "highest"
)

// Defaults applied to zero-valued options.
const (
	DefaultSize   = 256
	DefaultMargin = 2
)

// ErrEmptyPayload is returned for blank input.
var ErrEmptyPayload = errors.New("qr payload is empty")

// Options controls symbol rendering.
type Options struct {
	Level  goqrcode.RecoveryLevel
	Size   int // image side in pixels
	Margin int // quiet zone in modules
}

// DefaultOptions uses the highest error correction so a worn printout still scans.
func DefaultOptions() Options {
	return Options{Level: goqrcode.Highest, Size: DefaultSize, Margin: DefaultMargin}
}

// ParseLevel maps a configuration value to a recovery level.
// An empty string selects the highest level.
func ParseLevel(s string) (goqrcode.RecoveryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case LevelLow:
		return goqrcode.Low, nil
	case LevelMedium:
		return goqrcode.Medium, nil
	case LevelHigh:
		return goqrcode.High, nil
	case LevelHighest, "":
		return goqrcode.Highest, nil
	default:
		return goqrcode.Highest, fmt.Errorf("unknown qr error correction level %q", s)
	}
}

// Render encodes text as a PNG. Output is deterministic for identical text
// and options.
func Render(text string, opts Options) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPayload
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Margin < 0 {
		opts.Margin = DefaultMargin
	}

	q, err := goqrcode.New(text, opts.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr symbol: %w", err)
	}
	q.DisableBorder = true
	bitmap := q.Bitmap()

	modules := len(bitmap) + 2*opts.Margin
	scale := opts.Size / modules
	if scale < 1 {
		scale = 1
	}
	side := modules * scale
	// Remaining pixels are split around the symbol so the image is exactly Size wide
	// whenever Size covers at least one pixel per module.
	if side < opts.Size {
		side = opts.Size
	}
	offset := (side - len(bitmap)*scale) / 2

	img := image.NewPaletted(image.Rect(0, 0, side, side), color.Palette{color.White, color.Black})
	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			px, py := offset+x*scale, offset+y*scale
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.SetColorIndex(px+dx, py+dy, 1)
				}
			}
		}
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to write qr png: %w", err)
	}
	return buf.Bytes(), nil
}

// Encoder renders QR codes with configured options and absorbs failures.
type Encoder struct {
	opts   Options
	logger *zap.Logger
}

// NewEncoder builds an encoder from configuration.
func NewEncoder(cfg config.QRConfig, logger *zap.Logger) (*Encoder, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := DefaultOptions()
	opts.Level = level
	if cfg.Size > 0 {
		opts.Size = cfg.Size
	}
	if cfg.Margin >= 0 {
		opts.Margin = cfg.Margin
	}
	return &Encoder{opts: opts, logger: logger}, nil
}

// Options returns the encoder's rendering options.
func (e *Encoder) Options() Options { return e.opts }

// Encode returns the PNG for text, or a degraded outcome if it cannot be
// encoded. The caller omits the QR section on degrade.
func (e *Encoder) Encode(text string) receipt.Outcome[[]byte] {
	img, err := Render(text, e.opts)
	if err != nil {
		e.logger.Warn("QR code unavailable, omitting section", zap.Error(err), zap.Int("payload_bytes", len(text)))
		return receipt.Degraded[[]byte](err.Error())
	}
	return receipt.Ok(img)
}
