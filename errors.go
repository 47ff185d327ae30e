package pnglite

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a codec failure. Each kind is itself an error, so
// callers can match with errors.Is(err, pnglite.CrcError).
type ErrorKind int

const (
	IoError ErrorKind = iota + 1
	HeaderError
	CorruptedError
	CrcError
	CompressionError
	UnknownFilterError
	NotSupportedError
	MemoryError
	InvalidArgumentError
)

func (k ErrorKind) String() string {
	switch k {
	case IoError:
		return "short read or write on the byte stream"
	case HeaderError:
		return "no PNG signature found"
	case CorruptedError:
		return "PNG data does not follow the format or is corrupted"
	case CrcError:
		return "chunk CRC mismatch"
	case CompressionError:
		return "zlib stream error"
	case UnknownFilterError:
		return "unknown filter type in scanline"
	case NotSupportedError:
		return "PNG feature not supported"
	case MemoryError:
		return "image buffer too large"
	case InvalidArgumentError:
		return "invalid argument"
	}
	return "unknown error"
}

func (k ErrorKind) Error() string { return "pnglite: " + k.String() }

// Error is the concrete error returned by every Decoder and Encoder call.
type Error struct {
	Kind ErrorKind
	// Op names the step that failed, e.g. "read IHDR" or "write IDAT".
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pnglite: %s: %s: %v", e.Op, e.Kind.String(), e.Err)
	}
	return fmt.Sprintf("pnglite: %s: %s", e.Op, e.Kind.String())
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// KindOf returns the ErrorKind carried by err, or 0 if err did not come from
// this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

func newError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func errorf(kind ErrorKind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}
