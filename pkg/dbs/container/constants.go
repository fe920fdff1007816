package container

import "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/btea"

// Core format constants that never change

var (
	// DefaultKeyBytes is the 16-byte save key as stored by the game.
	DefaultKeyBytes = [btea.KeySize]byte{
		0x93, 0x9d, 0xab, 0x7a, 0x2a, 0x56, 0xf8, 0xaf,
		0xb4, 0xdb, 0xa9, 0xb5, 0x22, 0xa3, 0x4b, 0x2b,
	}

	// DefaultKey is DefaultKeyBytes as cipher words.
	DefaultKey = btea.KeyFromBytes(DefaultKeyBytes)
)

const (
	// Magic is written after the checksum of every save.
	Magic uint32 = 0x0169027D

	// ChecksumSeed is the initial value of the additive checksum.
	ChecksumSeed uint32 = 0x06583463

	// Fixed sizes - part of the format
	ChecksumSize = 4
	MagicSize    = 4

	// TrailerSize is the checksum and magic written after the payload.
	TrailerSize = ChecksumSize + MagicSize

	// BlockAlignment is the length the encrypted region is padded to: two
	// cipher words.
	BlockAlignment = 8
	MaxPadLen      = BlockAlignment - 1

	// MarkerSize is the plaintext padding-length byte after the encrypted
	// region.
	MarkerSize    = 1
	MinCipherSize = BlockAlignment + MarkerSize
)
