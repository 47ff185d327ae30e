// Package pnglite is a small PNG codec. It decodes non-interlaced PNG streams
// of up to 8 bits per sample into a flat byte-per-sample buffer and encodes
// such buffers back into PNG.
package pnglite

// ColorType is the PNG colour type stored in IHDR.
type ColorType uint8

const (
	Greyscale      ColorType = 0
	Truecolor      ColorType = 2
	Indexed        ColorType = 3
	GreyscaleAlpha ColorType = 4
	TruecolorAlpha ColorType = 6
)

// Channels returns the number of samples per pixel, or 0 for an unknown type.
func (c ColorType) Channels() int {
	switch c {
	case Greyscale, Indexed:
		return 1
	case GreyscaleAlpha:
		return 2
	case Truecolor:
		return 3
	case TruecolorAlpha:
		return 4
	}
	return 0
}

func (c ColorType) String() string {
	switch c {
	case Greyscale:
		return "greyscale"
	case Truecolor:
		return "truecolor"
	case Indexed:
		return "palette"
	case GreyscaleAlpha:
		return "greyscale with alpha"
	case TruecolorAlpha:
		return "truecolor with alpha"
	}
	return "unknown"
}

// PaletteEntry is one PLTE colour plus its tRNS alpha (255 when absent).
type PaletteEntry struct {
	R, G, B, A uint8
}

// Image describes a PNG image and, after a full decode, holds its samples.
//
// Pix always holds one byte per sample, Width*Height*Channels bytes, rows
// packed back to back with no padding, regardless of the bit depth used in
// the file. Samples from 1, 2 and 4 bit images are not rescaled.
type Image struct {
	Width, Height int
	Depth         int
	ColorType     ColorType

	CompressionMethod uint8
	FilterMethod      uint8
	InterlaceMethod   uint8

	// Palette is meaningful for Indexed images; PaletteSize entries were
	// read from PLTE.
	Palette     [256]PaletteEntry
	PaletteSize int

	// ColorKey is the transparent colour of a Greyscale (ColorKey[0]) or
	// Truecolor image, set when a tRNS chunk is present.
	ColorKey     [3]uint8
	Transparency bool

	Pix []byte
}

// Stride is the number of bytes per pixel, rounded up to a whole byte.
func (m *Image) Stride() int {
	return (m.Depth*m.ColorType.Channels() + 7) >> 3
}

// Pitch is the number of bytes in one packed scanline, excluding the filter
// type byte.
func (m *Image) Pitch() int {
	return (m.Width*m.Depth*m.ColorType.Channels() + 7) >> 3
}

// rowSamples is the length of one row of Pix.
func (m *Image) rowSamples() int {
	return m.Width * m.ColorType.Channels()
}

// pixOffset is the offset of the first sample of row y in Pix.
func (m *Image) pixOffset(y int) int {
	return y * m.rowSamples()
}

// scanlineOffset is the offset of row y's filter type byte in a filtered
// scanline buffer.
func scanlineOffset(y, pitch int) int {
	return y * (pitch + 1)
}

// TransparentIndex reports the palette index used as a colour key. An Indexed
// image with transparency qualifies when exactly one of its PaletteSize
// entries has alpha 0 and every other entry is fully opaque.
func (m *Image) TransparentIndex() (int, bool) {
	if m.ColorType != Indexed || !m.Transparency {
		return 0, false
	}
	index := -1
	for i := 0; i < m.PaletteSize && i < len(m.Palette); i++ {
		switch m.Palette[i].A {
		case 0:
			if index >= 0 {
				return 0, false
			}
			index = i
		case 255:
		default:
			return 0, false
		}
	}
	if index < 0 {
		return 0, false
	}
	return index, true
}
