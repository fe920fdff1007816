// Package container implements the save file container: an opaque payload
// followed by a checksum and a magic value, zero padded to the cipher block
// alignment, encrypted with the btea cipher and terminated by a plaintext
// padding-length byte.
//
// Layout:
//
//	[payload | checksum(4 LE) | magic(4 LE) | padding(0..7)] [padLen(1)]
//	 \_____________________ encrypted ____________________/  plaintext
package container

import (
	"encoding/binary"
	"fmt"

	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/btea"
	dbserrors "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/errors"
)

// Codec encodes and decodes save containers under one key and magic value.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	key   btea.Key
	magic uint32
}

var defaultCodec = New(DefaultKey, Magic)

// New returns a codec using key and magic.
func New(key btea.Key, magic uint32) *Codec {
	return &Codec{key: key, magic: magic}
}

// Default returns the codec for the game's key and magic value.
func Default() *Codec {
	return defaultCodec
}

// Key returns the cipher key.
func (c *Codec) Key() btea.Key {
	return c.key
}

// Magic returns the magic value written by Encode.
func (c *Codec) Magic() uint32 {
	return c.magic
}

// Unpacked is the result of decoding a container. Decoding never validates
// Checksum or Magic; callers compare them with ComputedChecksum and the
// expected magic value.
type Unpacked struct {
	Payload  []byte
	Checksum uint32 // stored checksum
	Magic    uint32 // stored magic value
	PadLen   uint8
}

// ComputedChecksum recomputes the checksum over Payload.
func (u *Unpacked) ComputedChecksum() uint32 {
	return Checksum(u.Payload)
}

// ChecksumValid reports whether the stored checksum matches the payload.
func (u *Unpacked) ChecksumValid() bool {
	return u.Checksum == u.ComputedChecksum()
}

// MagicValid reports whether the stored magic equals magic.
func (u *Unpacked) MagicValid(magic uint32) bool {
	return u.Magic == magic
}

// PadLenFor returns the number of zero bytes that align a payload of n bytes
// plus its trailer to BlockAlignment.
func PadLenFor(n int) int {
	return (BlockAlignment - (n+TrailerSize)%BlockAlignment) % BlockAlignment
}

// EncodedSize returns the container size for a payload of n bytes.
func EncodedSize(n int) int {
	return n + TrailerSize + PadLenFor(n) + MarkerSize
}

// Encode wraps payload into an encrypted container. payload is not modified.
func (c *Codec) Encode(payload []byte) ([]byte, error) {
	padLen := PadLenFor(len(payload))
	blockLen := len(payload) + TrailerSize + padLen

	block := make([]byte, blockLen, blockLen+MarkerSize)
	n := copy(block, payload)
	binary.LittleEndian.PutUint32(block[n:], Checksum(payload))
	binary.LittleEndian.PutUint32(block[n+ChecksumSize:], c.magic)
	// padding bytes are already zero

	words, err := btea.BytesToWords(block)
	if err != nil {
		return nil, err
	}
	if err := btea.EncryptBlock(words, c.key); err != nil {
		return nil, err
	}

	for i, w := range words {
		binary.LittleEndian.PutUint32(block[i*4:], w)
	}
	return append(block, byte(padLen)), nil
}

// Decode reverses Encode. Structural problems are reported as
// ErrInvalidLength or ErrInvalidPadding; a wrong checksum or magic value is
// returned as data in the Unpacked result. cipher is not modified.
func (c *Codec) Decode(cipher []byte) (*Unpacked, error) {
	if len(cipher) < MinCipherSize || (len(cipher)-MarkerSize)%BlockAlignment != 0 {
		return nil, fmt.Errorf("%w: %d bytes, want %d+%d*k with k >= 1",
			dbserrors.ErrInvalidLength, len(cipher), MarkerSize, BlockAlignment)
	}

	padLen := cipher[len(cipher)-1]
	if padLen > MaxPadLen {
		return nil, fmt.Errorf("%w: padding length %d exceeds %d", dbserrors.ErrInvalidPadding, padLen, MaxPadLen)
	}

	words, err := btea.BytesToWords(cipher[:len(cipher)-MarkerSize])
	if err != nil {
		return nil, err
	}
	if err := btea.DecryptBlock(words, c.key); err != nil {
		return nil, err
	}
	plain := btea.WordsToBytes(words)

	if int(padLen) > len(plain) {
		return nil, fmt.Errorf("%w: padding length %d exceeds block of %d bytes",
			dbserrors.ErrInvalidPadding, padLen, len(plain))
	}
	trailer := plain[:len(plain)-int(padLen)]
	if len(trailer) < TrailerSize {
		return nil, fmt.Errorf("%w: %d bytes left after padding, need %d",
			dbserrors.ErrInvalidLength, len(trailer), TrailerSize)
	}

	end := len(trailer) - TrailerSize
	return &Unpacked{
		Payload:  trailer[:end:end],
		Checksum: binary.LittleEndian.Uint32(trailer[end:]),
		Magic:    binary.LittleEndian.Uint32(trailer[end+ChecksumSize:]),
		PadLen:   padLen,
	}, nil
}

// Encode wraps payload using the default codec.
func Encode(payload []byte) ([]byte, error) {
	return defaultCodec.Encode(payload)
}

// Decode unwraps cipher using the default codec.
func Decode(cipher []byte) (*Unpacked, error) {
	return defaultCodec.Decode(cipher)
}
