package ports

import (
	"fmt"
	"image"
)

// Frame is one captured frame. The export core only reads it; ownership
// stays with whichever component produced it.
type Frame interface {
	// Width returns the frame width in pixels.
	Width() int

	// Height returns the frame height in pixels.
	Height() int

	// TimestampMicros returns the capture timestamp in microseconds.
	TimestampMicros() int64

	// Image returns the drawable image. An invalid or closed frame returns
	// an error; the pipeline renders it as a blank placeholder or aborts,
	// depending on caller policy, but never crashes.
	Image() (image.Image, error)
}

// CropArea is a rectangular crop in source frame coordinates.
// A nil *CropArea means the full frame.
type CropArea struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Bounds returns the crop as an image.Rectangle.
func (c CropArea) Bounds() image.Rectangle {
	return image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height)
}

// Validate checks that the crop has positive size and lies fully inside a
// frame of the given dimensions.
func (c CropArea) Validate(frameWidth, frameHeight int) error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("crop area: invalid size %dx%d", c.Width, c.Height)
	}
	if c.X < 0 || c.Y < 0 || c.X+c.Width > frameWidth || c.Y+c.Height > frameHeight {
		return fmt.Errorf("crop area %d,%d %dx%d exceeds frame bounds %dx%d",
			c.X, c.Y, c.Width, c.Height, frameWidth, frameHeight)
	}
	return nil
}
