package pnglite

import (
	"encoding/binary"
	"io"
)

// readPort is the decoder's view of the byte source. Every short read is an
// IoError.
type readPort struct {
	r   io.Reader
	tmp [8]byte
}

func (p *readPort) readFull(op string, b []byte) error {
	if _, err := io.ReadFull(p.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return newError(IoError, op, err)
	}
	return nil
}

func (p *readPort) readU32(op string) (uint32, error) {
	if err := p.readFull(op, p.tmp[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p.tmp[:4]), nil
}

// skip moves n bytes forward, seeking when the source supports it.
func (p *readPort) skip(op string, n int64) error {
	if n == 0 {
		return nil
	}
	if s, ok := p.r.(io.Seeker); ok {
		if _, err := s.Seek(n, io.SeekCurrent); err != nil {
			return newError(IoError, op, err)
		}
		return nil
	}
	copied, err := io.CopyN(io.Discard, p.r, n)
	if copied < n {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return newError(IoError, op, err)
	}
	return nil
}

// writePort is the encoder's view of the byte sink. Every short write is an
// IoError.
type writePort struct {
	w       io.Writer
	written int64
}

func (p *writePort) write(op string, b []byte) error {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return newError(IoError, op, err)
	}
	return nil
}

func (p *writePort) writeU32(op string, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return p.write(op, buf[:])
}
