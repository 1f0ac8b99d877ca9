package encoding

import "testing"

func TestFixed64RoundTrip(t *testing.T) {
	buf := AppendFixed64(nil, 0x1122334455667788)
	if len(buf) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(buf))
	}
	if got := DecodeFixed64(buf); got != 0x1122334455667788 {
		t.Fatalf("round trip mismatch: got %x", got)
	}
}

func TestFixed32RoundTrip(t *testing.T) {
	buf := AppendFixed32(nil, 0xdeadbeef)
	if got := DecodeFixed32(buf); got != 0xdeadbeef {
		t.Fatalf("round trip mismatch: got %x", got)
	}
}
