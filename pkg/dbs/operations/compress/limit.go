package compress

import (
	"errors"
	"fmt"
	"io"
)

// MaxDecompressedSize bounds what a single Reverse may inflate to. Backup
// archives are imported from arbitrary files.
const MaxDecompressedSize = 1 << 30

// ErrTooLarge is returned when decompressed data exceeds the limit.
var ErrTooLarge = errors.New("❌ decompressed data exceeds size limit")

var decompressLimit int64 = MaxDecompressedSize

// readAllLimited drains r, failing once more than decompressLimit bytes
// come out of it.
func readAllLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, decompressLimit+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s data: %w", name, err)
	}
	if int64(len(data)) > decompressLimit {
		return nil, fmt.Errorf("%w: %s output over %d bytes", ErrTooLarge, name, decompressLimit)
	}
	return data, nil
}
