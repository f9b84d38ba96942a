package voice

import (
	"golang.org/x/crypto/nacl/secretbox"

	"shardcore/internal/errs"
)

// secretKey is the 32-byte xsalsa20-poly1305 key from SESSION_DESCRIPTION.
type secretKey [32]byte

// sealRTP encrypts payload with key using the RTP header as the seal's
// nonce source (padded to 24 bytes), the concrete implementation of
// `crypto_secretbox` named in spec.md §4.5.1/§6.
func sealRTP(header, payload []byte, key secretKey) []byte {
	nonce := rtpNonce(header)
	sealed := secretbox.Seal(nil, payload, &nonce, (*[32]byte)(&key))
	out := make([]byte, 0, len(header)+len(sealed))
	out = append(out, header...)
	out = append(out, sealed...)
	return out
}

// openRTP decrypts an inbound sealed RTP packet: header is the 12-byte RTP
// header, sealed is everything after it.
func openRTP(header, sealed []byte, key secretKey) ([]byte, error) {
	nonce := rtpNonce(header)
	opened, ok := secretbox.Open(nil, sealed, &nonce, (*[32]byte)(&key))
	if !ok {
		return nil, errs.New(errs.KindProtocol, "rtp payload failed to open: wrong key or corrupted packet")
	}
	return opened, nil
}
