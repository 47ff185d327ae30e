package pnglite

import (
	"bufio"
	"bytes"
	"io"

	"github.com/rs/zerolog"
)

// Encoder writes 8-bit non-interlaced PNG streams. It reuses its scanline
// and compression buffers across Encode calls and is not safe for concurrent
// use.
type Encoder struct {
	Level  CompressionLevel
	Filter FilterPolicy
	// IDATSize caps the payload of each IDAT chunk. Zero writes the whole
	// compressed stream as a single IDAT.
	IDATSize int

	Logger zerolog.Logger

	scanlines []byte
	rows      [][]byte
	comp      bytes.Buffer
	zenc      *zlibDeflater
}

func NewEncoder() *Encoder {
	return &Encoder{Logger: zerolog.Nop()}
}

// Encode writes m as PNG with the default settings.
func Encode(w io.Writer, m *Image) error {
	return NewEncoder().Encode(w, m)
}

// Encode writes m to w. It uses Width, Height, Depth (which must be 8),
// ColorType, Transparency, Palette, PaletteSize, ColorKey and Pix, which
// holds Width*Height*Channels bytes with no row padding.
//
// For Indexed images all 256 palette entries are written. When PaletteSize
// is non-zero, entries from PaletteSize on are written as opaque black.
func (e *Encoder) Encode(w io.Writer, m *Image) error {
	const op = "encode"
	if w == nil || m == nil {
		return newError(InvalidArgumentError, op, nil)
	}
	if m.Depth != 8 {
		return errorf(NotSupportedError, op, "bit depth %d", m.Depth)
	}
	hdr := Image{Width: m.Width, Height: m.Height, Depth: m.Depth, ColorType: m.ColorType}
	if err := checkHeader(&hdr); err != nil {
		return err
	}
	if m.Transparency {
		switch m.ColorType {
		case Indexed, Greyscale, Truecolor:
		default:
			return errorf(NotSupportedError, op, "transparency with %s", m.ColorType)
		}
	}

	pitch := hdr.Pitch()
	size := int64(m.Height) * int64(pitch+1)
	if size > int64(maxInt) {
		return errorf(MemoryError, op, "%d bytes overflows int", size)
	}
	if int64(len(m.Pix)) != int64(m.Height)*int64(pitch) {
		return errorf(InvalidArgumentError, op, "pixel buffer holds %d bytes, want %d", len(m.Pix), m.Height*pitch)
	}

	if cap(e.scanlines) < int(size) {
		e.scanlines = make([]byte, size)
	}
	e.scanlines = e.scanlines[:size]
	for y := 0; y < m.Height; y++ {
		off := scanlineOffset(y, pitch)
		e.scanlines[off] = ftNone
		copy(e.scanlines[off+1:off+1+pitch], m.Pix[y*pitch:(y+1)*pitch])
	}
	filterScanlines(e.scanlines, m.Height, pitch, hdr.Stride(), e.Filter, e.filterRows(pitch))

	if e.zenc == nil || e.zenc.level != e.Level {
		e.zenc = &zlibDeflater{level: e.Level}
	}
	e.comp.Reset()
	if err := e.zenc.deflate(&e.comp, e.scanlines); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	p := &writePort{w: bw}
	if err := p.writeSignature(); err != nil {
		return err
	}
	if err := p.writeIHDR(&hdr); err != nil {
		return err
	}
	if m.ColorType == Indexed {
		if err := p.writePLTE(m); err != nil {
			return err
		}
	}
	if m.Transparency {
		if err := p.writeTRNS(m); err != nil {
			return err
		}
	}
	chunks, err := p.writeIDATs(e.comp.Bytes(), e.IDATSize)
	if err != nil {
		return err
	}
	if err := p.writeChunk(nameIEND, nil); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return newError(IoError, "flush", err)
	}

	e.Logger.Debug().
		Int("width", m.Width).
		Int("height", m.Height).
		Stringer("color", m.ColorType).
		Stringer("filter", e.Filter).
		Int("idat_chunks", chunks).
		Int64("bytes", p.written).
		Msg("encoded PNG")
	return nil
}

// EncodeBytes encodes m into a new byte slice.
func (e *Encoder) EncodeBytes(m *Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Encoder) filterRows(pitch int) [][]byte {
	if e.Filter != FilterAdaptive {
		return nil
	}
	if len(e.rows) != nFilter+1 {
		e.rows = make([][]byte, nFilter+1)
	}
	for i := range e.rows {
		if cap(e.rows[i]) < pitch {
			e.rows[i] = make([]byte, pitch)
		}
		e.rows[i] = e.rows[i][:pitch]
	}
	return e.rows
}

func (p *writePort) writePLTE(m *Image) error {
	var buf [3 * 256]byte
	for i, c := range m.Palette {
		if m.PaletteSize > 0 && i >= m.PaletteSize {
			break
		}
		buf[3*i+0] = c.R
		buf[3*i+1] = c.G
		buf[3*i+2] = c.B
	}
	return p.writeChunk(namePLTE, buf[:])
}

// writeTRNS writes the transparency chunk in the layout decode expects:
// 256 alpha bytes for Indexed, 16-bit samples holding the colour key
// otherwise.
func (p *writePort) writeTRNS(m *Image) error {
	switch m.ColorType {
	case Indexed:
		var buf [256]byte
		for i, c := range m.Palette {
			buf[i] = 255
			if m.PaletteSize == 0 || i < m.PaletteSize {
				buf[i] = c.A
			}
		}
		return p.writeChunk(nameTRNS, buf[:])
	case Greyscale:
		return p.writeChunk(nameTRNS, []byte{0, m.ColorKey[0]})
	case Truecolor:
		return p.writeChunk(nameTRNS, []byte{0, m.ColorKey[0], 0, m.ColorKey[1], 0, m.ColorKey[2]})
	}
	return errorf(NotSupportedError, "write tRNS", "transparency with %s", m.ColorType)
}

// writeIDATs splits the compressed stream into IDAT chunks of at most size
// bytes, or a single chunk when size is not positive.
func (p *writePort) writeIDATs(comp []byte, size int) (int, error) {
	if size <= 0 || size > maxChunkLength {
		size = maxChunkLength
	}
	chunks := 0
	for len(comp) > 0 || chunks == 0 {
		n := size
		if n > len(comp) {
			n = len(comp)
		}
		if err := p.writeChunk(nameIDAT, comp[:n]); err != nil {
			return chunks, err
		}
		comp = comp[n:]
		chunks++
	}
	return chunks, nil
}
