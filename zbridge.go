package pnglite

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// inflater decompresses one zlib stream from src into dst. dst is sized to
// the exact expected output and the stream has to end exactly there. src is
// a flate.Reader so the session never reads ahead of the bytes it consumes.
type inflater interface {
	inflate(dst []byte, src flate.Reader) error
}

// deflater compresses src into a complete zlib stream appended to dst.
type deflater interface {
	deflate(dst *bytes.Buffer, src []byte) error
}

// CompressionLevel trades encoding speed for output size.
type CompressionLevel int

const (
	DefaultCompression CompressionLevel = 0
	NoCompression      CompressionLevel = -1
	BestSpeed          CompressionLevel = -2
	BestCompression    CompressionLevel = -3
)

func (l CompressionLevel) zlib() int {
	switch l {
	case NoCompression:
		return zlib.NoCompression
	case BestSpeed:
		return zlib.BestSpeed
	case BestCompression:
		return zlib.BestCompression
	default:
		return zlib.DefaultCompression
	}
}

// --- zlib sessions ---

var zlibReaderPool sync.Pool

func getZlibReader(src io.Reader) (io.ReadCloser, error) {
	if zr, ok := zlibReaderPool.Get().(io.ReadCloser); ok {
		if err := zr.(zlib.Resetter).Reset(src, nil); err != nil {
			return nil, err
		}
		return zr, nil
	}
	return zlib.NewReader(src)
}

type zlibInflater struct{}

func (zlibInflater) inflate(dst []byte, src flate.Reader) error {
	const op = "inflate IDAT"
	zr, err := getZlibReader(src)
	if err != nil {
		return newError(CompressionError, op, err)
	}
	defer zlibReaderPool.Put(zr)

	if _, err := io.ReadFull(zr, dst); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errorf(CompressionError, op, "not enough pixel data")
		}
		return newError(CompressionError, op, err)
	}

	// The stream must end here. Reading to EOF also verifies the Adler-32
	// trailer.
	var extra [1]byte
	n, err := zr.Read(extra[:])
	if n > 0 {
		return errorf(CompressionError, op, "too much pixel data")
	}
	if err != io.EOF {
		if err == nil || err == io.ErrUnexpectedEOF {
			return errorf(CompressionError, op, "truncated zlib stream")
		}
		return newError(CompressionError, op, err)
	}
	return nil
}

type zlibDeflater struct {
	level CompressionLevel
	zw    *zlib.Writer
}

func (d *zlibDeflater) deflate(dst *bytes.Buffer, src []byte) error {
	const op = "deflate IDAT"
	if d.zw == nil {
		zw, err := zlib.NewWriterLevel(dst, d.level.zlib())
		if err != nil {
			return newError(CompressionError, op, err)
		}
		d.zw = zw
	} else {
		d.zw.Reset(dst)
	}
	if _, err := d.zw.Write(src); err != nil {
		return newError(CompressionError, op, err)
	}
	if err := d.zw.Close(); err != nil {
		return newError(CompressionError, op, err)
	}
	return nil
}
