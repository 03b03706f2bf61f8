// Package ports defines the interfaces between the export core and its adapters.
package ports

import (
	"context"
	"fmt"
)

// QuantizeFormat selects the packed color space used during palette
// quantization. The wider format keeps more channel bits and yields a more
// faithful palette; the narrower one reduces the histogram size and is faster.
type QuantizeFormat string

const (
	// QuantizeRGB565 packs colors as 5-6-5 bits per channel (higher precision).
	QuantizeRGB565 QuantizeFormat = "rgb565"
	// QuantizeRGB444 packs colors as 4-4-4 bits per channel (lower precision, faster).
	QuantizeRGB444 QuantizeFormat = "rgb444"
)

// EncoderConfig configures one encoding job. It is derived once from the
// export settings and output dimensions and never changes mid-job.
type EncoderConfig struct {
	Width          int
	Height         int
	MaxColors      int // palette budget, 16-256
	FrameDelayMs   int // per-frame delay, >= 20 ms
	LoopCount      int // 0 = loop forever
	QuantizeFormat QuantizeFormat
	Dithering      bool
}

// Validate checks that the config is usable for a job.
func (c EncoderConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("encoder config: invalid dimensions %dx%d", c.Width, c.Height)
	}
	if c.MaxColors < 16 || c.MaxColors > 256 {
		return fmt.Errorf("encoder config: max colors %d out of range [16,256]", c.MaxColors)
	}
	if c.FrameDelayMs < 20 {
		return fmt.Errorf("encoder config: frame delay %d ms below 20 ms floor", c.FrameDelayMs)
	}
	if c.LoopCount < 0 {
		return fmt.Errorf("encoder config: negative loop count %d", c.LoopCount)
	}
	switch c.QuantizeFormat {
	case QuantizeRGB565, QuantizeRGB444:
	default:
		return fmt.Errorf("encoder config: unknown quantize format %q", c.QuantizeFormat)
	}
	return nil
}

// EncoderInfo describes an encoder backend and the controls it honors.
// Backends that decline a control ignore the corresponding config field.
type EncoderInfo struct {
	ID                     string
	Name                   string
	SupportsDithering      bool
	SupportsMaxColors      bool
	SupportsQuantizeFormat bool
}

// GifEncoder abstracts a multi-frame GIF encoding backend.
//
// The lifecycle is strict: Init once, AddFrame in increasing frame-index
// order, Finish once, then the instance is terminal. Calls outside that
// order return errors, never silently no-op. Dispose is idempotent and
// legal at any stage.
type GifEncoder interface {
	// Init prepares the encoder for a job. It may block; native backends
	// load and compile their module here.
	Init(ctx context.Context, cfg EncoderConfig) error

	// AddFrame quantizes one RGBA frame to the palette budget and appends
	// it to the output stream with the configured delay.
	AddFrame(pixels []byte, width, height, frameIndex int) error

	// Finish flushes the encoder and returns the complete GIF bytes.
	Finish() ([]byte, error)

	// Dispose releases all backend resources unconditionally.
	Dispose()

	// Info returns backend metadata.
	Info() EncoderInfo
}

// EncoderFactory produces a fresh encoder instance for one job.
type EncoderFactory func() GifEncoder
