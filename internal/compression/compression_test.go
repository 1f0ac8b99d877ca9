package compression

import (
	"bytes"
	"testing"
)

func TestRoundTripAllCodecs(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 64)
	for _, typ := range []Type{None, Snappy, LZ4, Zstd} {
		t.Run(typ.String(), func(t *testing.T) {
			compressed, err := Compress(typ, data)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			out, err := Decompress(typ, compressed, len(data))
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Fatalf("round trip mismatch for %v", typ)
			}
		})
	}
}

func TestLZ4IncompressibleInput(t *testing.T) {
	data := []byte{1, 2, 3}
	compressed, err := Compress(LZ4, data)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	out, err := Decompress(LZ4, compressed, len(data))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("round trip mismatch")
	}
}
