package mocks

import (
	"image"

	"github.com/user/gifcast/pkg/ports"
)

// Frame is a mock implementation of ports.Frame.
type Frame struct {
	W   int
	H   int
	Ts  int64
	Img image.Image
	Err error
}

func (f *Frame) Width() int             { return f.W }
func (f *Frame) Height() int            { return f.H }
func (f *Frame) TimestampMicros() int64 { return f.Ts }

func (f *Frame) Image() (image.Image, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Img, nil
}

var _ ports.Frame = (*Frame)(nil)
