// Package btea implements the corrected block TEA cipher (XXTEA) over
// variable length blocks of little-endian 32-bit words.
//
// The cipher mixes the whole block at once: every word depends on every other
// word after a few rounds. It has no notion of padding, checksums or framing;
// see the container package for the save file layout built on top of it.
package btea

import (
	"encoding/binary"
	"fmt"

	dbserrors "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/errors"
)

const (
	// Delta is the key schedule constant, derived from the golden ratio.
	Delta uint32 = 0x9E3779B9

	// MinWords is the smallest block the cipher accepts.
	MinWords = 2

	// KeySize is the key length in bytes.
	KeySize = 16
)

// Key is a 128-bit cipher key as four little-endian words.
type Key [4]uint32

// KeyFromBytes reads a 16-byte key as four little-endian words.
func KeyFromBytes(b [KeySize]byte) Key {
	var k Key
	for i := range k {
		k[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return k
}

// Bytes returns the key in its 16-byte little-endian form.
func (k Key) Bytes() [KeySize]byte {
	var b [KeySize]byte
	for i, w := range k {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

// Rounds returns the number of full passes over a block of n words.
func Rounds(n int) int {
	return 6 + 52/n
}

func mx(sum, y, z uint32, p int, e uint32, k *Key) uint32 {
	return (((z >> 5) ^ (y << 2)) + ((y >> 3) ^ (z << 4))) ^ ((sum ^ y) + (k[(uint32(p)&3)^e] ^ z))
}

// EncryptBlock encrypts v in place. v must hold at least two words.
func EncryptBlock(v []uint32, k Key) error {
	n := len(v)
	if n < MinWords {
		return fmt.Errorf("%w: %d words, need at least %d", dbserrors.ErrInvalidBlockLength, n, MinWords)
	}

	var sum uint32
	z := v[n-1]
	for rounds := Rounds(n); rounds > 0; rounds-- {
		sum += Delta
		e := (sum >> 2) & 3
		for p := 0; p < n; p++ {
			y := v[(p+1)%n]
			v[p] += mx(sum, y, z, p, e, &k)
			z = v[p]
		}
	}
	return nil
}

// DecryptBlock reverses EncryptBlock in place.
func DecryptBlock(v []uint32, k Key) error {
	n := len(v)
	if n < MinWords {
		return fmt.Errorf("%w: %d words, need at least %d", dbserrors.ErrInvalidBlockLength, n, MinWords)
	}

	rounds := Rounds(n)
	sum := uint32(rounds) * Delta
	y := v[0]
	for ; rounds > 0; rounds-- {
		e := (sum >> 2) & 3
		for p := n - 1; p >= 0; p-- {
			z := v[(p+n-1)%n]
			v[p] -= mx(sum, y, z, p, e, &k)
			y = v[p]
		}
		sum -= Delta
	}
	return nil
}

// BytesToWords reads b as little-endian words. len(b) must be a multiple of 4.
func BytesToWords(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not word aligned", dbserrors.ErrInvalidBlockLength, len(b))
	}
	v := make([]uint32, len(b)/4)
	for i := range v {
		v[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return v, nil
}

// WordsToBytes writes v as little-endian bytes.
func WordsToBytes(v []uint32) []byte {
	b := make([]byte, len(v)*4)
	for i, w := range v {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}
