package wsclient

import (
	"bytes"
	"testing"
)

func TestEncodeFrameAlwaysSetsMaskBit(t *testing.T) {
	enc := encodeFrame(OpText, []byte("hi"), [4]byte{1, 2, 3, 4})

	if enc[1]&0x80 == 0 {
		t.Error("client frames must always set the mask bit")
	}
}

func TestEncodeDecodeRoundTripShortPayload(t *testing.T) {
	payload := []byte("hello gateway")
	enc := encodeFrame(OpText, payload, [4]byte{0xde, 0xad, 0xbe, 0xef})

	// tryDecodeFrame expects a server (unmasked) frame; unmask enc by hand
	// to exercise the same masking math from the other direction instead
	// of special-casing this test around an always-server-sends-unmasked
	// assumption.
	unmasked := maskedAsUnmasked(enc)
	fr, n, ok := tryDecodeFrame(unmasked)
	if !ok {
		t.Fatal("tryDecodeFrame reported an incomplete frame")
	}
	if n != len(unmasked) {
		t.Errorf("consumed %d bytes, want %d", n, len(unmasked))
	}
	if fr.opcode != OpText {
		t.Errorf("opcode = %v, want OpText", fr.opcode)
	}
	if !bytes.Equal(fr.payload, payload) {
		t.Errorf("payload = %q, want %q", fr.payload, payload)
	}
}

// maskedAsUnmasked turns a frame this package produced into the unmasked
// form a server sends: it clears the mask bit, drops the 4-byte mask key,
// and unmasks the payload, so tryDecodeFrame can be exercised against it.
func maskedAsUnmasked(enc []byte) []byte {
	pos := 2
	switch enc[1] & 0x7f {
	case 126:
		pos += 2
	case 127:
		pos += 8
	}
	key := enc[pos : pos+4]
	out := append([]byte(nil), enc[:pos]...)
	out[1] &^= 0x80
	for i, b := range enc[pos+4:] {
		out = append(out, b^key[i%4])
	}
	return out
}

func TestTryDecodeFrameIncomplete(t *testing.T) {
	if _, _, ok := tryDecodeFrame([]byte{0x81}); ok {
		t.Error("expected ok=false for a single-byte buffer")
	}
}

func TestTryDecodeFrameExtendedLength16(t *testing.T) {
	payload := bytes.Repeat([]byte{'x'}, 300)
	enc := encodeFrame(OpBinary, payload, [4]byte{1, 1, 1, 1})

	unmasked := maskedAsUnmasked(enc)
	fr, n, ok := tryDecodeFrame(unmasked)
	if !ok {
		t.Fatal("tryDecodeFrame reported an incomplete frame")
	}
	if n != len(unmasked) {
		t.Errorf("consumed %d bytes, want %d", n, len(unmasked))
	}
	if !bytes.Equal(fr.payload, payload) {
		t.Error("300-byte payload did not round-trip through the 16-bit extended length path")
	}
}

func TestTryDecodeFrameMaskedPayload(t *testing.T) {
	payload := []byte("masked-server-frame")
	enc := encodeFrame(OpText, payload, [4]byte{9, 8, 7, 6})

	// Decode enc directly, with its mask bit intact, exercising the
	// masked branch of tryDecodeFrame.
	fr, _, ok := tryDecodeFrame(enc)
	if !ok {
		t.Fatal("tryDecodeFrame reported an incomplete frame")
	}
	if !bytes.Equal(fr.payload, payload) {
		t.Errorf("payload = %q, want %q", fr.payload, payload)
	}
}
