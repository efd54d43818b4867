package pagevault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encrypted value format: magic:64 nonce:12 ciphertext. The ciphertext is the
// AEAD seal of the zstd-compressed plaintext and includes the 16-byte tag.
// Values without the magic prefix are legacy plaintext and pass through
// decode unchanged.
const (
	codecMagic = 0x31544c5541564750 // "PGVAULT1" as little-endian uint64

	codecMagicSize  = 8
	codecNonceSize  = chacha20poly1305.NonceSize
	codecHeaderSize = codecMagicSize + codecNonceSize
	codecMinSize    = codecHeaderSize + chacha20poly1305.Overhead
)

var (
	zstdEnc = must(zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest)))
	zstdDec = must(zstd.NewReader(nil))
)

type codec struct {
	aead cipher.AEAD
}

func newCodec(key []byte) (*codec, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, storeErrf(ErrKey, err, "invalid encryption key (%d bytes)", len(key))
	}
	return &codec{aead: aead}, nil
}

// encode compresses and seals plain under a fresh random nonce.
func (c *codec) encode(plain []byte) []byte {
	compressed := zstdEnc.EncodeAll(plain, nil)

	buf := make([]byte, codecHeaderSize, codecHeaderSize+len(compressed)+c.aead.Overhead())
	binary.LittleEndian.PutUint64(buf, codecMagic)
	nonce := buf[codecMagicSize:codecHeaderSize]
	_, err := rand.Read(nonce)
	ensure(err)

	return c.aead.Seal(buf, nonce, compressed, nil)
}

// decode reverses encode. Data without the magic prefix is returned as is.
func (c *codec) decode(data []byte) ([]byte, error) {
	if !hasCodecMagic(data) {
		return data, nil
	}
	if len(data) < codecMinSize {
		return nil, storeErrf(ErrCrypto, nil, "truncated encrypted value (%d bytes)", len(data))
	}
	nonce := data[codecMagicSize:codecHeaderSize]
	compressed, err := c.aead.Open(nil, nonce, data[codecHeaderSize:], nil)
	if err != nil {
		return nil, storeErrf(ErrCrypto, err, "cannot decrypt value")
	}
	plain, err := zstdDec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, storeErrf(ErrCompression, err, "cannot decompress value")
	}
	return plain, nil
}

func hasCodecMagic(data []byte) bool {
	return len(data) >= codecMagicSize && binary.LittleEndian.Uint64(data) == codecMagic
}
