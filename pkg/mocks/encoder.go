// Package mocks provides hand-rolled test doubles for the ports interfaces.
package mocks

import (
	"context"

	"github.com/user/gifcast/pkg/ports"
)

// GifEncoder is a mock implementation of ports.GifEncoder.
type GifEncoder struct {
	InitFunc     func(ctx context.Context, cfg ports.EncoderConfig) error
	AddFrameFunc func(pixels []byte, width, height, frameIndex int) error
	FinishFunc   func() ([]byte, error)
	InfoFunc     func() ports.EncoderInfo

	// Recorded calls for verification
	InitCalled    bool
	InitConfig    ports.EncoderConfig
	AddFrameCalls []AddFrameCall
	FinishCalled  bool
	DisposeCount  int
}

// AddFrameCall records a call to AddFrame.
type AddFrameCall struct {
	PixelLen   int
	Width      int
	Height     int
	FrameIndex int
}

func (m *GifEncoder) Init(ctx context.Context, cfg ports.EncoderConfig) error {
	m.InitCalled = true
	m.InitConfig = cfg
	if m.InitFunc != nil {
		return m.InitFunc(ctx, cfg)
	}
	return nil
}

func (m *GifEncoder) AddFrame(pixels []byte, width, height, frameIndex int) error {
	m.AddFrameCalls = append(m.AddFrameCalls, AddFrameCall{
		PixelLen:   len(pixels),
		Width:      width,
		Height:     height,
		FrameIndex: frameIndex,
	})
	if m.AddFrameFunc != nil {
		return m.AddFrameFunc(pixels, width, height, frameIndex)
	}
	return nil
}

func (m *GifEncoder) Finish() ([]byte, error) {
	m.FinishCalled = true
	if m.FinishFunc != nil {
		return m.FinishFunc()
	}
	// Minimal GIF header so callers see non-empty output.
	return []byte("GIF89a"), nil
}

func (m *GifEncoder) Dispose() {
	m.DisposeCount++
}

func (m *GifEncoder) Info() ports.EncoderInfo {
	if m.InfoFunc != nil {
		return m.InfoFunc()
	}
	return ports.EncoderInfo{ID: "mock", Name: "Mock Encoder"}
}

var _ ports.GifEncoder = (*GifEncoder)(nil)
