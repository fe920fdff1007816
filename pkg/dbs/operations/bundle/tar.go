// Package bundle implements the TAR operation and multi-file archives of
// save backups.
package bundle

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/operations"
)

// MaxEntrySize bounds a single archive member. Saves are a few hundred KiB.
const MaxEntrySize = 64 << 20

func init() {
	operations.Register(NewTarOperation())
}

// Entry is one file of an archive.
type Entry struct {
	Name    string
	ModTime time.Time
	Mode    int64
	Data    []byte
}

// Pack writes entries as a TAR archive.
func Pack(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for _, e := range entries {
		mode := e.Mode
		if mode == 0 {
			mode = 0o600
		}
		modTime := e.ModTime
		if modTime.IsZero() {
			modTime = time.Unix(0, 0)
		}
		header := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     e.Name,
			Mode:     mode,
			Size:     int64(len(e.Data)),
			ModTime:  modTime,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, fmt.Errorf("writing tar header for %s: %w", e.Name, err)
		}
		if _, err := tw.Write(e.Data); err != nil {
			return nil, fmt.Errorf("writing tar data for %s: %w", e.Name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack reads every regular file of a TAR archive. Member names are
// reduced to their base name so an archive cannot address paths outside
// the directory it is extracted into.
func Unpack(archive []byte) ([]Entry, error) {
	tr := tar.NewReader(bytes.NewReader(archive))

	var entries []Entry
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if header.Size < 0 || header.Size > MaxEntrySize {
			return nil, fmt.Errorf("invalid file size for %s: %d", header.Name, header.Size)
		}

		data := make([]byte, header.Size)
		if _, err := io.ReadFull(tr, data); err != nil {
			return nil, fmt.Errorf("reading tar data for %s: %w", header.Name, err)
		}

		name, ok := memberName(header.Name)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Name:    name,
			ModTime: header.ModTime,
			Mode:    header.Mode,
			Data:    data,
		})
	}
	return entries, nil
}

// memberName reduces an archive member name to a plain file name. Both
// slash styles count as separators on every platform, and names that are
// empty, dot-only or carry a drive or stream colon are rejected.
func memberName(raw string) (string, bool) {
	name := path.Base(path.Clean("/" + strings.ReplaceAll(raw, `\`, "/")))
	if name == "/" || name == "." || name == ".." || strings.ContainsRune(name, ':') {
		return "", false
	}
	return name, true
}

// TarOperation implements the TAR operation for a single blob
type TarOperation struct {
	operations.BaseOperation
}

// NewTarOperation creates a new TAR operation
func NewTarOperation() *TarOperation {
	return &TarOperation{
		BaseOperation: operations.BaseOperation{
			OpID:   operations.OP_TAR,
			OpName: "TAR",
		},
	}
}

// Apply wraps input as the single member "data"
func (o *TarOperation) Apply(input []byte) ([]byte, error) {
	return Pack([]Entry{{Name: "data", ModTime: time.Now(), Data: input}})
}

// Reverse returns the first member of the archive
func (o *TarOperation) Reverse(input []byte) ([]byte, error) {
	entries, err := Unpack(input)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty tar archive")
	}
	return entries[0].Data, nil
}
