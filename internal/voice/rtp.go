package voice

import "encoding/binary"

// rtpHeaderLen is the fixed 12-byte RTP header size Discord voice uses:
// V=2/PT=0x78, sequence, timestamp, ssrc. No CSRC list, no extension.
const rtpHeaderLen = 12

func buildRTPHeader(seq uint16, timestamp, ssrc uint32) []byte {
	h := make([]byte, rtpHeaderLen)
	h[0] = 0x80 // V=2, P=0, X=0, CC=0
	h[1] = 0x78 // M=0, PT=0x78
	binary.BigEndian.PutUint16(h[2:4], seq)
	binary.BigEndian.PutUint32(h[4:8], timestamp)
	binary.BigEndian.PutUint32(h[8:12], ssrc)
	return h
}

// rtpNonce pads a 12-byte RTP header to the 24-byte nonce secretbox needs,
// per spec.md §6: "nonce=header||0*12".
func rtpNonce(header []byte) [24]byte {
	var nonce [24]byte
	copy(nonce[:], header)
	return nonce
}

func parseRTPHeader(buf []byte) (seq uint16, timestamp, ssrc uint32, ok bool) {
	if len(buf) < rtpHeaderLen {
		return 0, 0, 0, false
	}
	seq = binary.BigEndian.Uint16(buf[2:4])
	timestamp = binary.BigEndian.Uint32(buf[4:8])
	ssrc = binary.BigEndian.Uint32(buf[8:12])
	return seq, timestamp, ssrc, true
}
