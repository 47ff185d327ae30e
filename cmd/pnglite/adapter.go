package main

import (
	"fmt"
	"image"
	"image/color"

	"pnglite"
)

// toImage converts a decoded descriptor into an image.Image. Greyscale
// samples below 8 bits are scaled to the full 0-255 range and a colour key
// turns matching pixels fully transparent.
func toImage(m *pnglite.Image) (image.Image, error) {
	if m.Depth > 8 {
		return nil, fmt.Errorf("bit depth %d is not supported", m.Depth)
	}
	rect := image.Rect(0, 0, m.Width, m.Height)
	n := m.Width * m.Height

	switch m.ColorType {
	case pnglite.Greyscale:
		scale := uint8(255 / (1<<m.Depth - 1))
		if !m.Transparency {
			img := image.NewGray(rect)
			for i, v := range m.Pix[:n] {
				img.Pix[i] = v * scale
			}
			return img, nil
		}
		img := image.NewNRGBA(rect)
		for i, v := range m.Pix[:n] {
			a := uint8(255)
			if v == m.ColorKey[0] {
				a = 0
			}
			g := v * scale
			copy(img.Pix[4*i:], []uint8{g, g, g, a})
		}
		return img, nil

	case pnglite.GreyscaleAlpha:
		img := image.NewNRGBA(rect)
		for i := 0; i < n; i++ {
			g, a := m.Pix[2*i], m.Pix[2*i+1]
			copy(img.Pix[4*i:], []uint8{g, g, g, a})
		}
		return img, nil

	case pnglite.Truecolor:
		img := image.NewNRGBA(rect)
		for i := 0; i < n; i++ {
			px := m.Pix[3*i : 3*i+3]
			a := uint8(255)
			if m.Transparency && px[0] == m.ColorKey[0] && px[1] == m.ColorKey[1] && px[2] == m.ColorKey[2] {
				a = 0
			}
			copy(img.Pix[4*i:], []uint8{px[0], px[1], px[2], a})
		}
		return img, nil

	case pnglite.TruecolorAlpha:
		img := image.NewNRGBA(rect)
		copy(img.Pix, m.Pix[:4*n])
		return img, nil

	case pnglite.Indexed:
		// Out-of-range indices map to the opaque black entries past the
		// PLTE data rather than panicking in At.
		size := m.PaletteSize
		for _, v := range m.Pix[:n] {
			if int(v) >= size {
				size = int(v) + 1
			}
		}
		pal := make(color.Palette, size)
		for i := range pal {
			e := m.Palette[i]
			pal[i] = color.NRGBA{R: e.R, G: e.G, B: e.B, A: e.A}
		}
		img := image.NewPaletted(rect, pal)
		copy(img.Pix, m.Pix[:n])
		return img, nil
	}
	return nil, fmt.Errorf("unknown color type %d", m.ColorType)
}

// toDepth8 returns a copy of m the encoder accepts. Indexed samples are
// already one index per byte; greyscale samples and the colour key are
// scaled up.
func toDepth8(m *pnglite.Image) (*pnglite.Image, error) {
	if m.Depth == 8 {
		return m, nil
	}
	if m.Depth > 8 {
		return nil, fmt.Errorf("bit depth %d is not supported", m.Depth)
	}
	out := *m
	out.Depth = 8
	if m.ColorType == pnglite.Greyscale {
		scale := uint8(255 / (1<<m.Depth - 1))
		out.Pix = make([]byte, len(m.Pix))
		for i, v := range m.Pix {
			out.Pix[i] = v * scale
		}
		out.ColorKey[0] = m.ColorKey[0] * scale
	}
	return &out, nil
}

// fromImage builds an 8-bit descriptor from img. Paletted images keep their
// palette and alpha table, greyscale stays greyscale, opaque images become
// Truecolor and everything else TruecolorAlpha.
func fromImage(img image.Image) *pnglite.Image {
	b := img.Bounds()
	m := &pnglite.Image{Width: b.Dx(), Height: b.Dy(), Depth: 8}
	n := m.Width * m.Height

	switch src := img.(type) {
	case *image.Paletted:
		if len(src.Palette) <= 256 {
			m.ColorType = pnglite.Indexed
			m.PaletteSize = len(src.Palette)
			for i, c := range src.Palette {
				e := color.NRGBAModel.Convert(c).(color.NRGBA)
				m.Palette[i] = pnglite.PaletteEntry{R: e.R, G: e.G, B: e.B, A: e.A}
				if e.A != 255 {
					m.Transparency = true
				}
			}
			m.Pix = make([]byte, 0, n)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				off := src.PixOffset(b.Min.X, y)
				m.Pix = append(m.Pix, src.Pix[off:off+m.Width]...)
			}
			return m
		}
	case *image.Gray:
		m.ColorType = pnglite.Greyscale
		m.Pix = make([]byte, 0, n)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := src.PixOffset(b.Min.X, y)
			m.Pix = append(m.Pix, src.Pix[off:off+m.Width]...)
		}
		return m
	}

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		m.ColorType = pnglite.Truecolor
	} else {
		m.ColorType = pnglite.TruecolorAlpha
	}
	ch := m.ColorType.Channels()
	m.Pix = make([]byte, 0, n*ch)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			px := [4]uint8{c.R, c.G, c.B, c.A}
			m.Pix = append(m.Pix, px[:ch]...)
		}
	}
	return m
}
