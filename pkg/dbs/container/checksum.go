package container

// Checksum returns the save checksum of payload: ChecksumSeed plus the sum of
// all payload bytes, modulo 2^32.
//
// The sum ignores byte order, so any permutation of a payload has the same
// checksum. It catches additive corruption and wrong-key decodes, not
// reordering or deliberate tampering.
func Checksum(payload []byte) uint32 {
	sum := ChecksumSeed
	for _, b := range payload {
		sum += uint32(b)
	}
	return sum
}
