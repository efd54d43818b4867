package pagevault

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeMsgpackDeterministic(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}
	a := encodeMsgpack(nil, m)
	for range 20 {
		if b := encodeMsgpack(nil, m); !bytes.Equal(a, b) {
			t.Fatalf("two encodings of one map differ: %s vs %s", hexstr(a), hexstr(b))
		}
	}
}

func TestEncodeMsgpackAppends(t *testing.T) {
	buf := []byte{0xFF}
	out := encodeMsgpack(buf, 42)
	if out[0] != 0xFF || len(out) < 2 {
		t.Fatalf("encodeMsgpack did not append: %s", hexstr(out))
	}
}

func TestDecodeMsgpackError(t *testing.T) {
	var v map[string]int
	err := decodeMsgpack(x("c1"), &v) // 0xc1 is never a valid msgpack byte
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("decodeMsgpack err = %T %v, wanted *DataError", err, err)
	}
}
