// Package gifenc provides the portable software GIF encoder backend:
// palette quantization in a packed color space plus a multi-frame GIF
// writer, running synchronously on the calling goroutine.
package gifenc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"

	"github.com/user/gifcast/pkg/ports"
)

// ID is the registry identifier of the software backend.
const ID = "software"

var (
	// ErrNotInitialized is returned when AddFrame or Finish is called
	// before a successful Init.
	ErrNotInitialized = errors.New("gifenc: encoder not initialized")
	// ErrTerminal is returned for any call after Finish or Dispose.
	ErrTerminal = errors.New("gifenc: encoder is terminal")
)

type state int

const (
	stateNew state = iota
	stateReady
	stateFinished
	stateDisposed
)

// Encoder implements ports.GifEncoder in pure Go.
type Encoder struct {
	state     state
	cfg       ports.EncoderConfig
	frames    []*image.Paletted
	delays    []int
	nextFrame int
}

// New creates a new software encoder.
func New() *Encoder {
	return &Encoder{}
}

// Factory returns a registry factory for the software backend.
func Factory() ports.EncoderFactory {
	return func() ports.GifEncoder { return New() }
}

// Info returns backend metadata. The software backend honors every
// fine-grained control.
func (e *Encoder) Info() ports.EncoderInfo {
	return ports.EncoderInfo{
		ID:                     ID,
		Name:                   "Software (pure Go)",
		SupportsDithering:      true,
		SupportsMaxColors:      true,
		SupportsQuantizeFormat: true,
	}
}

// Init prepares the encoder for a job.
func (e *Encoder) Init(ctx context.Context, cfg ports.EncoderConfig) error {
	switch e.state {
	case stateFinished, stateDisposed:
		return ErrTerminal
	case stateReady:
		return errors.New("gifenc: already initialized")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.cfg = cfg
	e.frames = nil
	e.delays = nil
	e.nextFrame = 0
	e.state = stateReady
	return nil
}

// AddFrame quantizes one RGBA frame and appends it to the animation.
// Frames must arrive strictly sequentially in increasing index order.
func (e *Encoder) AddFrame(pixels []byte, width, height, frameIndex int) error {
	switch e.state {
	case stateNew:
		return ErrNotInitialized
	case stateFinished, stateDisposed:
		return ErrTerminal
	}
	if frameIndex != e.nextFrame {
		return fmt.Errorf("gifenc: frame %d out of order, expected %d", frameIndex, e.nextFrame)
	}
	if width != e.cfg.Width || height != e.cfg.Height {
		return fmt.Errorf("gifenc: frame %d is %dx%d, config is %dx%d",
			frameIndex, width, height, e.cfg.Width, e.cfg.Height)
	}
	if len(pixels) != width*height*4 {
		return fmt.Errorf("gifenc: frame %d has %d bytes, expected %d",
			frameIndex, len(pixels), width*height*4)
	}

	palette := buildPalette(pixels, e.cfg.MaxColors, e.cfg.QuantizeFormat)
	paletted := mapToPalette(pixels, width, height, palette, e.cfg.QuantizeFormat, e.cfg.Dithering)

	e.frames = append(e.frames, paletted)
	e.delays = append(e.delays, e.cfg.FrameDelayMs/10)
	e.nextFrame++
	return nil
}

// Finish writes the accumulated frames as one GIF and returns the bytes.
// The encoder is terminal afterwards.
func (e *Encoder) Finish() ([]byte, error) {
	switch e.state {
	case stateNew:
		return nil, ErrNotInitialized
	case stateFinished, stateDisposed:
		return nil, ErrTerminal
	}
	if len(e.frames) == 0 {
		e.state = stateFinished
		return nil, errors.New("gifenc: no frames added")
	}

	anim := &gif.GIF{
		Image:     e.frames,
		Delay:     e.delays,
		LoopCount: e.cfg.LoopCount, // 0 loops forever, matching the GIF application extension
		Config: image.Config{
			Width:  e.cfg.Width,
			Height: e.cfg.Height,
		},
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		e.state = stateFinished
		return nil, fmt.Errorf("gifenc: write animation: %w", err)
	}

	e.state = stateFinished
	e.frames = nil
	e.delays = nil
	return buf.Bytes(), nil
}

// Dispose releases buffered frames. Safe to call at any stage, repeatedly.
func (e *Encoder) Dispose() {
	e.frames = nil
	e.delays = nil
	e.state = stateDisposed
}

var _ ports.GifEncoder = (*Encoder)(nil)
