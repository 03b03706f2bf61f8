package wasmenc

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/gifcast/pkg/ports"
)

var (
	// ErrNotInitialized is returned when AddFrame or Finish is called
	// before a successful Init.
	ErrNotInitialized = errors.New("wasmenc: encoder not initialized")
	// ErrTerminal is returned for any call after Finish or Dispose.
	ErrTerminal = errors.New("wasmenc: encoder is terminal")
)

type state int

const (
	stateNew state = iota
	stateReady
	stateFinished
	stateDisposed
)

// Encoder implements ports.GifEncoder against a wasm module instance.
// Each encoder gets its own module instance (its own linear memory); the
// compiled module is shared through the backend's cache.
type Encoder struct {
	backend *Backend

	state     state
	cfg       ports.EncoderConfig
	inst      *instance
	nextFrame int
}

// Factory returns a registry factory for this backend.
func Factory(b *Backend) ports.EncoderFactory {
	return func() ports.GifEncoder { return &Encoder{backend: b} }
}

// Info returns backend metadata. The wasm module fixes its own
// quality/speed tradeoff, so the fine-grained controls are declined.
func (e *Encoder) Info() ports.EncoderInfo {
	return ports.EncoderInfo{
		ID:                     ID,
		Name:                   "Native (wasm)",
		SupportsDithering:      false,
		SupportsMaxColors:      false,
		SupportsQuantizeFormat: false,
	}
}

// Init loads and instantiates the wasm module and creates the module-side
// encoder. A load or compile failure wraps ErrModuleUnavailable.
func (e *Encoder) Init(ctx context.Context, cfg ports.EncoderConfig) error {
	switch e.state {
	case stateFinished, stateDisposed:
		return ErrTerminal
	case stateReady:
		return errors.New("wasmenc: already initialized")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	inst, err := e.backend.newInstance(ctx, cfg.Width, cfg.Height, cfg.FrameDelayMs/10, cfg.LoopCount)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.inst = inst
	e.nextFrame = 0
	e.state = stateReady
	return nil
}

// AddFrame copies the pixels into linear memory and runs the module's
// quantize-and-append routine.
func (e *Encoder) AddFrame(pixels []byte, width, height, frameIndex int) error {
	switch e.state {
	case stateNew:
		return ErrNotInitialized
	case stateFinished, stateDisposed:
		return ErrTerminal
	}
	if frameIndex != e.nextFrame {
		return fmt.Errorf("wasmenc: frame %d out of order, expected %d", frameIndex, e.nextFrame)
	}
	if len(pixels) != width*height*4 {
		return fmt.Errorf("wasmenc: frame %d has %d bytes, expected %d",
			frameIndex, len(pixels), width*height*4)
	}

	_, _, err := e.inst.quantize(context.Background(), pixels, width, height)
	if err != nil {
		return err
	}
	e.nextFrame++
	return nil
}

// Finish runs the module's completion routine and returns the encoded GIF.
func (e *Encoder) Finish() ([]byte, error) {
	switch e.state {
	case stateNew:
		return nil, ErrNotInitialized
	case stateFinished, stateDisposed:
		return nil, ErrTerminal
	}

	ctx := context.Background()
	data, err := e.inst.finish(ctx)
	e.inst.close(ctx)
	e.inst = nil
	e.state = stateFinished
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Dispose tears down the module instance. Safe at any stage, repeatedly.
func (e *Encoder) Dispose() {
	if e.inst != nil {
		e.inst.close(context.Background())
		e.inst = nil
	}
	e.state = stateDisposed
}

var _ ports.GifEncoder = (*Encoder)(nil)
