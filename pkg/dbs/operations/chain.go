package operations

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PackOperations packs a list of operations into a 64-bit integer.
// Each operation takes 8 bits, allowing up to 8 operations in the chain.
// Operations are packed in execution order (first operation in LSB).
func PackOperations(operations []uint8) (uint64, error) {
	if len(operations) > 8 {
		return 0, fmt.Errorf("maximum 8 operations allowed, got %d", len(operations))
	}

	var packed uint64
	for i, op := range operations {
		packed |= uint64(op) << (i * 8)
	}
	return packed, nil
}

// UnpackOperations unpacks a 64-bit integer into a list of operations.
func UnpackOperations(packed uint64) []uint8 {
	var operations []uint8
	for i := 0; i < 8; i++ {
		op := uint8(packed >> (i * 8))
		if op == OP_NONE { // terminates the chain
			break
		}
		operations = append(operations, op)
	}
	return operations
}

// Named chains, also used as archive file extensions
var namedChains = map[string][]uint8{
	"raw":     {},
	"tar":     {OP_TAR},
	"gzip":    {OP_GZIP},
	"bzip2":   {OP_BZIP2},
	"lz4":     {OP_LZ4},
	"tar.gz":  {OP_TAR, OP_GZIP},
	"tar.bz2": {OP_TAR, OP_BZIP2},
	"tar.lz4": {OP_TAR, OP_LZ4},

	// Alternative names
	"tgz":  {OP_TAR, OP_GZIP},
	"tbz2": {OP_TAR, OP_BZIP2},
}

var namedOperations = map[string]uint8{
	"TAR":   OP_TAR,
	"GZIP":  OP_GZIP,
	"BZIP2": OP_BZIP2,
	"LZ4":   OP_LZ4,
}

// ParseChain parses "tar.gz", "tgz" or a pipe list such as "tar|lz4".
func ParseChain(s string) ([]uint8, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return []uint8{}, nil
	}
	if ops, ok := namedChains[s]; ok {
		return append([]uint8{}, ops...), nil
	}

	if strings.Contains(s, "|") {
		var ops []uint8
		for _, part := range strings.Split(s, "|") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			op, ok := namedOperations[part]
			if !ok {
				return nil, fmt.Errorf("unsupported operation: %s", part)
			}
			ops = append(ops, op)
		}
		if _, err := PackOperations(ops); err != nil {
			return nil, err
		}
		return ops, nil
	}

	return nil, fmt.Errorf("unknown operation chain: %s", s)
}

// ChainString converts a chain back to its common name, or a pipe list.
func ChainString(ops []uint8) string {
	if len(ops) == 0 {
		return "raw"
	}
	if name, ok := commonChains[operationsToChain(ops)]; ok {
		return name
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = strings.ToLower(GetName(op))
	}
	return strings.Join(names, "|")
}

// operationsToChain converts operations slice to string for map lookup
func operationsToChain(ops []uint8) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = fmt.Sprintf("%02x", op)
	}
	return strings.Join(parts, "-")
}

var commonChains = map[string]string{
	"01":    "tar",
	"10":    "gzip",
	"13":    "bzip2",
	"1e":    "lz4",
	"01-10": "tar.gz",
	"01-13": "tar.bz2",
	"01-1e": "tar.lz4",
}

// ChainForFilename picks the chain from an archive name such as
// "backups.tar.bz2".
func ChainForFilename(name string) ([]uint8, error) {
	base := strings.ToLower(filepath.Base(name))
	for _, ext := range []string{"tar.gz", "tar.bz2", "tar.lz4", "tgz", "tbz2", "tar"} {
		if strings.HasSuffix(base, "."+ext) {
			return ParseChain(ext)
		}
	}
	return nil, fmt.Errorf("cannot infer archive format from %q", name)
}

// ApplyChain applies a chain of operations to data
func ApplyChain(data []byte, operations []uint8) ([]byte, error) {
	current := data
	for _, opID := range operations {
		op, err := Get(opID)
		if err != nil {
			return nil, fmt.Errorf("operation 0x%02x: %w", opID, err)
		}
		result, err := op.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("applying %s: %w", op.Name(), err)
		}
		current = result
	}
	return current, nil
}

// ReverseChain reverses a chain of operations on data
func ReverseChain(data []byte, operations []uint8) ([]byte, error) {
	current := data
	for i := len(operations) - 1; i >= 0; i-- {
		op, err := Get(operations[i])
		if err != nil {
			return nil, fmt.Errorf("operation 0x%02x: %w", operations[i], err)
		}
		result, err := op.Reverse(current)
		if err != nil {
			return nil, fmt.Errorf("reversing %s: %w", op.Name(), err)
		}
		current = result
	}
	return current, nil
}
