package pnglite

import (
	"bytes"
	"io"

	"github.com/rs/zerolog"
)

const maxInt = int(^uint(0) >> 1)

// Decoder reuses its scanline and chunk buffers across Decode calls to
// reduce allocations. It is not safe for concurrent use. The Pix buffer of a
// returned Image is always freshly allocated and owned by the caller.
type Decoder struct {
	// MaxBufferSize bounds every buffer a decode allocates (the scanline
	// buffer, an IDAT payload, the output pixels). Zero means no limit other
	// than the address space. Exceeding it is a MemoryError.
	MaxBufferSize int

	Logger zerolog.Logger

	inflate   inflater
	scanlines []byte
	chunk     []byte
}

func NewDecoder() *Decoder {
	return &Decoder{Logger: zerolog.Nop(), inflate: zlibInflater{}}
}

// Decode reads a PNG stream from r and returns its descriptor with Pix
// filled. The first error aborts the decode; no partial image is returned.
func Decode(r io.Reader) (*Image, error) {
	return NewDecoder().Decode(r)
}

// DecodeConfig reads only the signature and IHDR chunk. Pix is left nil.
func DecodeConfig(r io.Reader) (*Image, error) {
	return NewDecoder().DecodeConfig(r)
}

func (d *Decoder) DecodeConfig(r io.Reader) (*Image, error) {
	if r == nil {
		return nil, newError(InvalidArgumentError, "decode", nil)
	}
	p := &readPort{r: r}
	m := &Image{}
	if err := p.readSignature(); err != nil {
		return nil, err
	}
	if err := p.readIHDR(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *Decoder) Decode(r io.Reader) (*Image, error) {
	if r == nil {
		return nil, newError(InvalidArgumentError, "decode", nil)
	}
	if d.inflate == nil {
		d.inflate = zlibInflater{}
	}
	p := &readPort{r: r}
	m := &Image{}
	if err := p.readSignature(); err != nil {
		return nil, err
	}
	if err := p.readIHDR(m); err != nil {
		return nil, err
	}

	st := decodeState{d: d, p: p, m: m}
	if err := st.readChunks(); err != nil {
		return nil, err
	}

	pitch := m.Pitch()
	if err := unfilter(d.scanlines, m.Height, pitch, m.Stride()); err != nil {
		return nil, err
	}
	m.Pix = make([]byte, m.Height*m.rowSamples())
	for y := 0; y < m.Height; y++ {
		off := scanlineOffset(y, pitch) + 1
		row := d.scanlines[off : off+pitch]
		dst := m.Pix[m.pixOffset(y):m.pixOffset(y+1)]
		if m.Depth < 8 {
			unpackRow(dst, row, m.Depth)
		} else {
			copy(dst, row)
		}
	}
	return m, nil
}

// DecodeBytes decodes a PNG held in memory.
func (d *Decoder) DecodeBytes(b []byte) (*Image, error) {
	return d.Decode(bytes.NewReader(b))
}

// checkSize returns n as an int, or a MemoryError when it overflows or
// exceeds the decoder's limit.
func (d *Decoder) checkSize(op string, n int64) (int, error) {
	if n < 0 || n > int64(maxInt) {
		return 0, errorf(MemoryError, op, "%d bytes overflows int", n)
	}
	if d.MaxBufferSize > 0 && n > int64(d.MaxBufferSize) {
		return 0, errorf(MemoryError, op, "%d bytes exceeds limit of %d", n, d.MaxBufferSize)
	}
	return int(n), nil
}

// Decoding stages. PLTE and tRNS must precede the IDAT run, and IDAT
// chunks must be contiguous.
const (
	dsSeenIHDR = iota
	dsSeenPLTE
	dsSeenTRNS
	dsSeenIDAT
	dsSeenIEND
)

type decodeState struct {
	d     *Decoder
	p     *readPort
	m     *Image
	stage int
}

// readChunks walks every chunk after IHDR up to and including IEND.
func (st *decodeState) readChunks() error {
	h, err := st.p.readChunkHeader()
	if err != nil {
		return err
	}
	for {
		switch h.tag {
		case tagIHDR:
			return errorf(CorruptedError, "read IHDR", "duplicate IHDR chunk")
		case tagPLTE:
			if err := st.readPLTE(h); err != nil {
				return err
			}
		case tagTRNS:
			if err := st.readTRNS(h); err != nil {
				return err
			}
		case tagIDAT:
			// readIDATs consumes the whole run and hands back the header of
			// the chunk that ended it.
			if h, err = st.readIDATs(h); err != nil {
				return err
			}
			continue
		case tagIEND:
			return st.readIEND(h)
		default:
			st.d.Logger.Debug().
				Str("chunk", h.String()).
				Uint32("length", h.length).
				Msg("skipping ancillary chunk")
			if err := st.p.skip("skip "+h.String(), int64(h.length)+4); err != nil {
				return err
			}
		}
		if h, err = st.p.readChunkHeader(); err != nil {
			return err
		}
	}
}

func (st *decodeState) readPLTE(h chunkHeader) error {
	const op = "read PLTE"
	if st.stage >= dsSeenPLTE {
		return errorf(CorruptedError, op, "PLTE after %s", stageName(st.stage))
	}
	st.stage = dsSeenPLTE
	if h.length%3 != 0 || h.length > 3*256 {
		return errorf(CorruptedError, op, "length %d", h.length)
	}
	var buf [3 * 256]byte
	payload := buf[:h.length]
	if err := st.p.readFull(op, payload); err != nil {
		return err
	}
	if err := st.p.verifyCRC(h, payload); err != nil {
		return err
	}

	m := st.m
	n := len(payload) / 3
	for i := range m.Palette {
		m.Palette[i] = PaletteEntry{A: 255}
		if i < n {
			m.Palette[i].R = payload[3*i+0]
			m.Palette[i].G = payload[3*i+1]
			m.Palette[i].B = payload[3*i+2]
		}
	}
	m.PaletteSize = n
	return nil
}

func (st *decodeState) readTRNS(h chunkHeader) error {
	const op = "read tRNS"
	m := st.m
	if st.stage >= dsSeenTRNS {
		return errorf(CorruptedError, op, "tRNS after %s", stageName(st.stage))
	}
	if m.ColorType == Indexed && st.stage < dsSeenPLTE {
		return errorf(CorruptedError, op, "tRNS before PLTE")
	}
	st.stage = dsSeenTRNS

	var buf [256]byte
	switch m.ColorType {
	case Indexed:
		if h.length > 256 {
			return errorf(CorruptedError, op, "length %d for %s", h.length, m.ColorType)
		}
	case Truecolor:
		if h.length != 6 {
			return errorf(CorruptedError, op, "length %d for %s", h.length, m.ColorType)
		}
	case Greyscale:
		if h.length != 2 {
			return errorf(CorruptedError, op, "length %d for %s", h.length, m.ColorType)
		}
	default:
		return errorf(CorruptedError, op, "tRNS with %s", m.ColorType)
	}
	payload := buf[:h.length]
	if err := st.p.readFull(op, payload); err != nil {
		return err
	}
	if err := st.p.verifyCRC(h, payload); err != nil {
		return err
	}

	// Samples are 16 bits wide on disk; only the low byte is kept.
	switch m.ColorType {
	case Indexed:
		for i, a := range payload {
			m.Palette[i].A = a
		}
	case Truecolor:
		m.ColorKey = [3]uint8{payload[1], payload[3], payload[5]}
	case Greyscale:
		m.ColorKey[0] = payload[1]
	}
	m.Transparency = true
	return nil
}

// readIDATs allocates the scanline buffer and inflates the whole IDAT run
// into it.
func (st *decodeState) readIDATs(first chunkHeader) (chunkHeader, error) {
	const op = "read IDAT"
	m, d := st.m, st.d
	if st.stage >= dsSeenIDAT {
		return first, errorf(CorruptedError, op, "IDAT chunks are not contiguous")
	}
	if m.ColorType == Indexed && st.stage < dsSeenPLTE {
		return first, errorf(CorruptedError, op, "missing PLTE for %s image", m.ColorType)
	}
	st.stage = dsSeenIDAT

	pitch := (int64(m.Width)*int64(m.Depth*m.ColorType.Channels()) + 7) >> 3
	n, err := d.checkSize(op, int64(m.Height)*(pitch+1))
	if err != nil {
		return first, err
	}
	if _, err := d.checkSize(op, int64(m.Height)*int64(m.Width)*int64(m.ColorType.Channels())); err != nil {
		return first, err
	}
	if cap(d.scanlines) < n {
		d.scanlines = make([]byte, n)
	}
	d.scanlines = d.scanlines[:n]

	s := &idatStream{p: st.p, d: d, buf: d.chunk}
	defer func() { d.chunk = s.buf }()
	if err := s.load(first); err != nil {
		return first, err
	}
	if err := d.inflate.inflate(d.scanlines, s); err != nil {
		// A read or CRC failure underneath the zlib session is the real
		// cause of whatever the session reported.
		if s.err != nil {
			return first, s.err
		}
		return first, err
	}
	next, err := s.finish()
	if err != nil {
		return first, err
	}
	d.Logger.Debug().
		Int("chunks", s.chunks).
		Int64("compressed", s.total).
		Int("inflated", n).
		Msg("read IDAT run")
	return next, nil
}

func (st *decodeState) readIEND(h chunkHeader) error {
	const op = "read IEND"
	if st.stage < dsSeenIDAT {
		return errorf(CorruptedError, op, "no IDAT chunk before IEND")
	}
	st.stage = dsSeenIEND
	if h.length != 0 {
		return errorf(CorruptedError, op, "length %d", h.length)
	}
	return st.p.verifyCRC(h, nil)
}

func stageName(stage int) string {
	switch stage {
	case dsSeenPLTE:
		return "PLTE"
	case dsSeenTRNS:
		return "tRNS"
	case dsSeenIDAT:
		return "IDAT"
	case dsSeenIEND:
		return "IEND"
	}
	return "IHDR"
}

// idatStream presents one or more contiguous IDAT chunks as one continuous
// stream. Each payload is read whole and its CRC verified before any of it is
// handed to the zlib session. When a chunk other than IDAT follows, its
// header is kept in next and the stream reports io.EOF.
type idatStream struct {
	p *readPort
	d *Decoder

	buf  []byte
	data []byte
	next chunkHeader
	done bool
	// err is the first read or CRC failure, which the zlib session may
	// wrap or replace.
	err error

	chunks int
	total  int64
}

func (s *idatStream) load(h chunkHeader) error {
	n, err := s.d.checkSize("read IDAT", int64(h.length))
	if err != nil {
		return err
	}
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	payload := s.buf[:n]
	if err := s.p.readFull("read IDAT", payload); err != nil {
		return err
	}
	if err := s.p.verifyCRC(h, payload); err != nil {
		return err
	}
	s.data = payload
	s.chunks++
	s.total += int64(n)
	return nil
}

// advance makes sure s.data is non-empty, loading the next IDAT chunk if
// needed.
func (s *idatStream) advance() error {
	for len(s.data) == 0 {
		if s.err != nil {
			return s.err
		}
		if s.done {
			return io.EOF
		}
		h, err := s.p.readChunkHeader()
		if err != nil {
			s.err = err
			return err
		}
		if h.tag != tagIDAT {
			s.next, s.done = h, true
			return io.EOF
		}
		if err := s.load(h); err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

func (s *idatStream) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if err := s.advance(); err != nil {
		return 0, err
	}
	n := copy(b, s.data)
	s.data = s.data[n:]
	return n, nil
}

func (s *idatStream) ReadByte() (byte, error) {
	if err := s.advance(); err != nil {
		return 0, err
	}
	c := s.data[0]
	s.data = s.data[1:]
	return c, nil
}

// finish consumes the rest of the run once the zlib stream has ended. Any
// compressed byte left over means the session and the chunks disagree.
func (s *idatStream) finish() (chunkHeader, error) {
	for {
		if len(s.data) > 0 {
			return s.next, errorf(CompressionError, "read IDAT", "%d bytes after end of zlib stream", len(s.data))
		}
		err := s.advance()
		if err == io.EOF {
			return s.next, nil
		}
		if err != nil {
			return s.next, err
		}
	}
}
