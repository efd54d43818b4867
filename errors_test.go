package pagevault

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStoreError(t *testing.T) {
	inner := errors.New("inner")
	err := storeErrf(ErrCrypto, inner, "cannot decrypt %s", "value")

	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}
	if got := err.Error(); got != "pagevault: crypto: cannot decrypt value: inner" {
		t.Fatalf("err.Error() = %q", got)
	}
	deepEqual(t, Kind(err), ErrCrypto)
	deepEqual(t, Kind(fmt.Errorf("outer: %w", err)), ErrCrypto)
	deepEqual(t, Kind(errors.New("other")), ErrKind(0))
	deepEqual(t, Kind(nil), ErrKind(0))

	err = storeErrf(ErrKey, nil, "no key")
	if got := err.Error(); got != "pagevault: key: no key" {
		t.Fatalf("err.Error() = %q", got)
	}
}

func TestErrKindString(t *testing.T) {
	deepEqual(t, ErrIO.String(), "io")
	deepEqual(t, ErrLogBackend.String(), "log backend")
	deepEqual(t, ErrSnapshotBackend.String(), "snapshot backend")
	deepEqual(t, ErrKey.String(), "key")
	deepEqual(t, ErrCrypto.String(), "crypto")
	deepEqual(t, ErrCompression.String(), "compression")
	deepEqual(t, ErrKind(99).String(), "kind(99)")
}

func TestDataError_ErrorAndUnwrap(t *testing.T) {
	t.Run("small data", func(t *testing.T) {
		inner := errors.New("inner")
		err := dataErrf([]byte{0xAA, 0xBB}, 1, inner, "oops")
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("err = %T, wanted *DataError", err)
		}
		if !errors.Is(err, inner) {
			t.Fatalf("errors.Is(err, inner) = false, wanted true")
		}
		s := err.Error()
		if !strings.Contains(s, "oops") || !strings.Contains(s, "inner") || !strings.Contains(s, "(2)") {
			t.Fatalf("err.Error() = %q, wanted message with oops/inner/(2)", s)
		}
	})

	t.Run("large data includes prefix+suffix", func(t *testing.T) {
		data := make([]byte, 200)
		for i := range data {
			data[i] = byte(i)
		}
		err := dataErrf(data, 0, nil, "oops")
		s := err.Error()
		if !strings.Contains(s, "(200)") || !strings.Contains(s, "...") {
			t.Fatalf("err.Error() = %q, wanted message with (200) and ...", s)
		}
	})
}
