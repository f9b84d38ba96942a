package voice

import "testing"

func TestBuildAndParseRTPHeader(t *testing.T) {
	header := buildRTPHeader(7, 13440, 0xdeadbeef)

	if len(header) != rtpHeaderLen {
		t.Fatalf("len(header) = %d, want %d", len(header), rtpHeaderLen)
	}
	if header[0] != 0x80 || header[1] != 0x78 {
		t.Errorf("version/payload-type bytes = %#x %#x, want 0x80 0x78", header[0], header[1])
	}

	seq, ts, ssrc, ok := parseRTPHeader(header)
	if !ok {
		t.Fatal("parseRTPHeader returned ok=false for a valid header")
	}
	if seq != 7 || ts != 13440 || ssrc != 0xdeadbeef {
		t.Errorf("parsed (seq=%d, ts=%d, ssrc=%#x), want (7, 13440, 0xdeadbeef)", seq, ts, ssrc)
	}
}

func TestParseRTPHeaderTooShort(t *testing.T) {
	if _, _, _, ok := parseRTPHeader(make([]byte, rtpHeaderLen-1)); ok {
		t.Error("expected ok=false for a buffer shorter than the RTP header")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	var key secretKey
	for i := range key {
		key[i] = byte(i)
	}

	header := buildRTPHeader(1, 960, 0x1234)
	payload := []byte("opus-encoded-frame-goes-here")

	sealed := sealRTP(header, payload, key)
	opened, err := openRTP(sealed[:rtpHeaderLen], sealed[rtpHeaderLen:], key)
	if err != nil {
		t.Fatalf("openRTP with the correct key failed: %v", err)
	}
	if string(opened) != string(payload) {
		t.Errorf("opened payload = %q, want %q", opened, payload)
	}
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	var key, wrongKey secretKey
	for i := range key {
		key[i] = byte(i)
		wrongKey[i] = byte(255 - i)
	}

	header := buildRTPHeader(1, 960, 0x1234)
	sealed := sealRTP(header, []byte("secret"), key)

	if _, err := openRTP(sealed[:rtpHeaderLen], sealed[rtpHeaderLen:], wrongKey); err == nil {
		t.Error("expected openRTP to fail when sealed with a different key")
	}
}
