// Package extractor converts captured frames into flat RGBA pixel buffers,
// applying an optional crop via offscreen compositing.
package extractor

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/gifcast/pkg/ports"
)

// ExtractionError reports a frame that could not be read. It is distinct
// from encoder errors so the caller can choose between substituting a
// placeholder and aborting the job.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame extraction: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("frame extraction: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extract reads one frame into a flat RGBA buffer (4 bytes per pixel,
// row-major) and returns the buffer with its dimensions.
//
// Without a crop, a tightly packed *image.RGBA source is read back directly
// with no intermediate copy. Any other source, and every cropped extraction,
// is composited onto an offscreen context first.
func Extract(frame ports.Frame, crop *ports.CropArea) ([]byte, int, int, error) {
	if frame == nil {
		return nil, 0, 0, &ExtractionError{Reason: "nil frame"}
	}

	img, err := frame.Image()
	if err != nil {
		return nil, 0, 0, &ExtractionError{Reason: "frame source unreadable", Err: err}
	}
	if img == nil {
		return nil, 0, 0, &ExtractionError{Reason: "frame source returned no image"}
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, 0, 0, &ExtractionError{Reason: fmt.Sprintf("empty frame %dx%d", srcW, srcH)}
	}

	if crop == nil {
		if rgba, ok := img.(*image.RGBA); ok && tightlyPacked(rgba) {
			// Direct readback, no compositing pass.
			return rgba.Pix, srcW, srcH, nil
		}
		return composite(img, 0, 0, srcW, srcH)
	}

	if err := crop.Validate(srcW, srcH); err != nil {
		return nil, 0, 0, &ExtractionError{Reason: "invalid crop", Err: err}
	}
	return composite(img, crop.X, crop.Y, crop.Width, crop.Height)
}

// Placeholder returns a blank (transparent) RGBA buffer for an invalid frame
// when the caller's policy is to substitute rather than abort.
func Placeholder(width, height int) []byte {
	return make([]byte, width*height*4)
}

// composite draws the source rectangle at (x, y, w, h) onto an offscreen
// context sized to the target and reads the pixels back.
func composite(img image.Image, x, y, w, h int) ([]byte, int, int, error) {
	dc := gg.NewContext(w, h)
	dc.DrawImage(img, -x, -y)

	out := dc.Image()
	rgba, ok := out.(*image.RGBA)
	if !ok || !tightlyPacked(rgba) {
		// gg contexts are RGBA-backed; this is a conversion of last resort.
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), out, out.Bounds().Min, draw.Src)
		rgba = dst
	}
	return rgba.Pix, w, h, nil
}

// tightlyPacked reports whether the image's Pix slice is exactly one row
// stride per row with a zero-origin, so it can be handed off as-is.
func tightlyPacked(img *image.RGBA) bool {
	b := img.Bounds()
	return b.Min.X == 0 && b.Min.Y == 0 && img.Stride == b.Dx()*4 && len(img.Pix) == b.Dx()*b.Dy()*4
}
