package gifenc

import (
	"image"
	"image/color"
	"sort"

	"github.com/user/gifcast/pkg/ports"
)

// packColor reduces an RGB triple to the configured packed space. The packed
// value is both the histogram key and the palette lookup key.
func packColor(r, g, b uint8, format ports.QuantizeFormat) uint16 {
	if format == ports.QuantizeRGB444 {
		return uint16(r>>4)<<8 | uint16(g>>4)<<4 | uint16(b>>4)
	}
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// unpackColor expands a packed value back to 8-bit channels, replicating the
// high bits into the truncated low bits.
func unpackColor(packed uint16, format ports.QuantizeFormat) color.RGBA {
	if format == ports.QuantizeRGB444 {
		r := uint8(packed >> 8 & 0x0f)
		g := uint8(packed >> 4 & 0x0f)
		b := uint8(packed & 0x0f)
		return color.RGBA{R: r<<4 | r, G: g<<4 | g, B: b<<4 | b, A: 255}
	}
	r := uint8(packed >> 11 & 0x1f)
	g := uint8(packed >> 5 & 0x3f)
	b := uint8(packed & 0x1f)
	return color.RGBA{R: r<<3 | r>>2, G: g<<2 | g>>4, B: b<<3 | b>>2, A: 255}
}

// buildPalette derives a fixed palette of at most maxColors entries from the
// RGBA buffer by popularity in the packed color space.
func buildPalette(pixels []byte, maxColors int, format ports.QuantizeFormat) color.Palette {
	hist := make(map[uint16]int)
	for i := 0; i+3 < len(pixels); i += 4 {
		hist[packColor(pixels[i], pixels[i+1], pixels[i+2], format)]++
	}

	packed := make([]uint16, 0, len(hist))
	for p := range hist {
		packed = append(packed, p)
	}
	sort.Slice(packed, func(i, j int) bool {
		if hist[packed[i]] != hist[packed[j]] {
			return hist[packed[i]] > hist[packed[j]]
		}
		return packed[i] < packed[j] // deterministic on ties
	})

	if len(packed) > maxColors {
		packed = packed[:maxColors]
	}

	palette := make(color.Palette, 0, len(packed))
	for _, p := range packed {
		palette = append(palette, unpackColor(p, format))
	}
	if len(palette) == 0 {
		palette = color.Palette{color.RGBA{A: 255}}
	}
	return palette
}

// mapToPalette converts an RGBA buffer to a paletted image, either by direct
// nearest-color lookup (cached per packed value) or with Floyd-Steinberg
// error diffusion when dithering is on.
func mapToPalette(pixels []byte, width, height int, palette color.Palette, format ports.QuantizeFormat, dithering bool) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, width, height), palette)
	if dithering {
		ditherInto(img, pixels, width, height, palette)
		return img
	}

	cache := make(map[uint16]uint8)
	for i, j := 0, 0; i+3 < len(pixels); i, j = i+4, j+1 {
		key := packColor(pixels[i], pixels[i+1], pixels[i+2], format)
		idx, ok := cache[key]
		if !ok {
			idx = uint8(palette.Index(color.RGBA{R: pixels[i], G: pixels[i+1], B: pixels[i+2], A: 255}))
			cache[key] = idx
		}
		img.Pix[j] = idx
	}
	return img
}

// ditherInto applies Floyd-Steinberg error diffusion while mapping pixels to
// palette indices.
func ditherInto(img *image.Paletted, pixels []byte, width, height int, palette color.Palette) {
	// Working copy with headroom for diffused error.
	work := make([]int32, width*height*3)
	for i, j := 0, 0; i+3 < len(pixels); i, j = i+4, j+3 {
		work[j] = int32(pixels[i])
		work[j+1] = int32(pixels[i+1])
		work[j+2] = int32(pixels[i+2])
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := (y*width + x) * 3
			r := clampByte(work[p])
			g := clampByte(work[p+1])
			b := clampByte(work[p+2])

			idx := palette.Index(color.RGBA{R: r, G: g, B: b, A: 255})
			img.Pix[y*width+x] = uint8(idx)

			chosen := color.RGBAModel.Convert(palette[idx]).(color.RGBA)
			er := int32(r) - int32(chosen.R)
			eg := int32(g) - int32(chosen.G)
			eb := int32(b) - int32(chosen.B)

			diffuse(work, width, height, x+1, y, er, eg, eb, 7)
			diffuse(work, width, height, x-1, y+1, er, eg, eb, 3)
			diffuse(work, width, height, x, y+1, er, eg, eb, 5)
			diffuse(work, width, height, x+1, y+1, er, eg, eb, 1)
		}
	}
}

func diffuse(work []int32, width, height, x, y int, er, eg, eb, weight int32) {
	if x < 0 || x >= width || y >= height {
		return
	}
	p := (y*width + x) * 3
	work[p] += er * weight / 16
	work[p+1] += eg * weight / 16
	work[p+2] += eb * weight / 16
}

func clampByte(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
