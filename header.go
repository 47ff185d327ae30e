package pnglite

import (
	"encoding/binary"
)

const pngSignature = "\x89PNG\r\n\x1a\n"

const ihdrLength = 13

func (p *readPort) readSignature() error {
	if err := p.readFull("read signature", p.tmp[:len(pngSignature)]); err != nil {
		return err
	}
	if string(p.tmp[:len(pngSignature)]) != pngSignature {
		return newError(HeaderError, "read signature", nil)
	}
	return nil
}

// readIHDR reads the chunk that must directly follow the signature and
// validates it.
func (p *readPort) readIHDR(m *Image) error {
	h, err := p.readChunkHeader()
	if err != nil {
		return err
	}
	if h.tag != tagIHDR {
		return errorf(CorruptedError, "read IHDR", "first chunk is %q", h.String())
	}
	if h.length != ihdrLength {
		return errorf(CorruptedError, "read IHDR", "length %d", h.length)
	}
	var buf [ihdrLength]byte
	if err := p.readFull("read IHDR", buf[:]); err != nil {
		return err
	}
	if err := p.verifyCRC(h, buf[:]); err != nil {
		return err
	}

	w := binary.BigEndian.Uint32(buf[0:4])
	hh := binary.BigEndian.Uint32(buf[4:8])
	if w > maxChunkLength || hh > maxChunkLength {
		return errorf(CorruptedError, "read IHDR", "dimension %dx%d out of range", w, hh)
	}
	m.Width = int(w)
	m.Height = int(hh)
	m.Depth = int(buf[8])
	m.ColorType = ColorType(buf[9])
	m.CompressionMethod = buf[10]
	m.FilterMethod = buf[11]
	m.InterlaceMethod = buf[12]
	return checkHeader(m)
}

// checkHeader validates the IHDR fields of m. Structurally invalid
// combinations are CorruptedError; valid PNG features this codec does not
// implement (16-bit samples, interlacing) are NotSupportedError.
func checkHeader(m *Image) error {
	const op = "check header"
	if m.Width <= 0 || m.Height <= 0 {
		return errorf(CorruptedError, op, "non-positive dimension %dx%d", m.Width, m.Height)
	}
	switch m.Depth {
	case 1, 2, 4, 8, 16:
	default:
		return errorf(CorruptedError, op, "bit depth %d", m.Depth)
	}
	switch m.ColorType {
	case Greyscale:
	case Truecolor, GreyscaleAlpha, TruecolorAlpha:
		if m.Depth < 8 {
			return errorf(CorruptedError, op, "bit depth %d with %s", m.Depth, m.ColorType)
		}
	case Indexed:
		if m.Depth > 8 {
			return errorf(CorruptedError, op, "bit depth %d with %s", m.Depth, m.ColorType)
		}
	default:
		return errorf(CorruptedError, op, "color type %d", m.ColorType)
	}
	if m.CompressionMethod != 0 {
		return errorf(CorruptedError, op, "compression method %d", m.CompressionMethod)
	}
	if m.FilterMethod != 0 {
		return errorf(CorruptedError, op, "filter method %d", m.FilterMethod)
	}
	switch m.InterlaceMethod {
	case 0:
	case 1:
		return errorf(NotSupportedError, op, "interlaced image")
	default:
		return errorf(CorruptedError, op, "interlace method %d", m.InterlaceMethod)
	}
	if m.Depth == 16 {
		return errorf(NotSupportedError, op, "16-bit samples")
	}
	return nil
}

func (p *writePort) writeSignature() error {
	return p.write("write signature", []byte(pngSignature))
}

func (p *writePort) writeIHDR(m *Image) error {
	var buf [ihdrLength]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(m.Width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(m.Height))
	buf[8] = byte(m.Depth)
	buf[9] = byte(m.ColorType)
	// compression, filter and interlace methods are always 0.
	return p.writeChunk(nameIHDR, buf[:])
}
