package pnglite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestErrorMatching(t *testing.T) {
	err := newError(IoError, "read IDAT", io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("loading sprite: %w", err)

	if !errors.Is(wrapped, IoError) {
		t.Fatalf("errors.Is(IoError) = false for %v", wrapped)
	}
	if errors.Is(wrapped, CrcError) {
		t.Fatalf("errors.Is(CrcError) = true for %v", wrapped)
	}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Fatalf("cause is not reachable through Unwrap")
	}
	if got := KindOf(wrapped); got != IoError {
		t.Fatalf("KindOf = %v, want IoError", got)
	}
	if got := KindOf(errors.New("other")); got != 0 {
		t.Fatalf("KindOf(foreign) = %v, want 0", got)
	}

	var e *Error
	if !errors.As(wrapped, &e) || e.Op != "read IDAT" {
		t.Fatalf("errors.As did not recover the op: %+v", e)
	}
}

func TestErrorStrings(t *testing.T) {
	for k := IoError; k <= InvalidArgumentError; k++ {
		if s := k.String(); s == "" || s == "unknown error" {
			t.Errorf("kind %d has no description", int(k))
		}
		if !strings.HasPrefix(k.Error(), "pnglite: ") {
			t.Errorf("kind %d: %q lacks package prefix", int(k), k.Error())
		}
	}
	if ErrorKind(0).String() != "unknown error" {
		t.Errorf("zero kind = %q", ErrorKind(0).String())
	}

	err := errorf(CorruptedError, "read PLTE", "length %d", 7)
	if got, want := err.Error(), "pnglite: read PLTE: "+CorruptedError.String()+": length 7"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDecodeErrorsCarryKind(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("GIF89a..")))
	if KindOf(err) != HeaderError {
		t.Fatalf("KindOf(%v) = %v, want HeaderError", err, KindOf(err))
	}
}
