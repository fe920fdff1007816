package compress

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/operations"
)

func init() {
	operations.Register(NewLz4Operation())
}

var lz4WriterPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewWriter(nil)
	},
}

var lz4ReaderPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewReader(nil)
	},
}

// Lz4Operation implements LZ4 frame compression
type Lz4Operation struct {
	operations.BaseOperation
}

// NewLz4Operation creates a new LZ4 operation
func NewLz4Operation() *Lz4Operation {
	return &Lz4Operation{
		BaseOperation: operations.BaseOperation{
			OpID:   operations.OP_LZ4,
			OpName: "LZ4",
		},
	}
}

// Apply compresses data using LZ4
func (o *Lz4Operation) Apply(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4WriterPool.Get().(*lz4.Writer)
	defer lz4WriterPool.Put(w)

	w.Reset(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
		return nil, fmt.Errorf("configuring lz4 writer: %w", err)
	}
	if _, err := w.Write(input); err != nil {
		return nil, fmt.Errorf("writing lz4 data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing lz4 writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Reverse decompresses LZ4 data
func (o *Lz4Operation) Reverse(input []byte) ([]byte, error) {
	r := lz4ReaderPool.Get().(*lz4.Reader)
	defer lz4ReaderPool.Put(r)

	r.Reset(bytes.NewReader(input))
	return readAllLimited(r, "lz4")
}
