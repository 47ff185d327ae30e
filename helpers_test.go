package pnglite

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"testing"
)

// makeTestImage fills an 8-bit image of the given colour type with a
// deterministic pattern, in the style of a synthetic photo.
func makeTestImage(w, h int, ct ColorType) *Image {
	m := &Image{Width: w, Height: h, Depth: 8, ColorType: ct}
	ch := ct.Channels()
	m.Pix = make([]byte, w*h*ch)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < ch; c++ {
				v := uint8((x*17)^(y*31)) + uint8(c*43) + uint8(x*y)
				if ct == Indexed {
					v = uint8((x + y*3) % 7)
				}
				m.Pix[(y*w+x)*ch+c] = v
			}
		}
	}
	if ct == Indexed {
		m.PaletteSize = 7
		for i := 0; i < 7; i++ {
			m.Palette[i] = PaletteEntry{R: uint8(i * 30), G: uint8(255 - i*30), B: uint8(i * 11), A: 255}
		}
	}
	return m
}

func ihdrPayload(w, h uint32, depth, ct, interlace byte) []byte {
	buf := make([]byte, 13)
	binary.BigEndian.PutUint32(buf[0:4], w)
	binary.BigEndian.PutUint32(buf[4:8], h)
	buf[8] = depth
	buf[9] = ct
	buf[12] = interlace
	return buf
}

func chunkBytes(name string, payload []byte) []byte {
	var n [4]byte
	copy(n[:], name)
	out := make([]byte, 0, 12+len(payload))
	out = binary.BigEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, n[:]...)
	out = append(out, payload...)
	return binary.BigEndian.AppendUint32(out, chunkCRC(n, payload))
}

func buildPNG(chunks ...[]byte) []byte {
	out := []byte(pngSignature)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// zlibBytes compresses data with the standard library so tests do not lean
// on the codec's own deflater.
func zlibBytes(t testing.TB, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

type rawChunk struct {
	name    string
	payload []byte
	// start and end are offsets of the chunk's length field and of the byte
	// following its CRC.
	start, end int
}

// walkChunks splits an encoded PNG into its chunks.
func walkChunks(t testing.TB, b []byte) []rawChunk {
	t.Helper()
	if !bytes.HasPrefix(b, []byte(pngSignature)) {
		t.Fatalf("missing signature")
	}
	var out []rawChunk
	pos := len(pngSignature)
	for pos < len(b) {
		if len(b)-pos < 12 {
			t.Fatalf("truncated chunk at %d", pos)
		}
		n := int(binary.BigEndian.Uint32(b[pos:]))
		end := pos + 12 + n
		out = append(out, rawChunk{
			name:    string(b[pos+4 : pos+8]),
			payload: b[pos+8 : pos+8+n],
			start:   pos,
			end:     end,
		})
		pos = end
	}
	return out
}

// countingReader hides any Seek method of the source and counts the bytes
// handed out.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

type failingWriter struct {
	budget int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if len(p) > f.budget {
		n := f.budget
		f.budget = 0
		return n, io.ErrClosedPipe
	}
	f.budget -= len(p)
	return len(p), nil
}

func mustEncode(t testing.TB, e *Encoder, m *Image) []byte {
	t.Helper()
	b, err := e.EncodeBytes(m)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	return b
}
