package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/provide-io/dbs-save/go/dbssave/internal/config"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/operations"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/operations/bundle"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/savefile"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/fingerprint"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/permissions"

	// registers gzip, bzip2 and lz4
	_ "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/operations/compress"
)

func archiveStages(chain []uint8) ([]uint8, error) {
	if len(chain) == 0 || chain[0] != operations.OP_TAR {
		return nil, fmt.Errorf("archive chain %q must start with tar", operations.ChainString(chain))
	}
	if _, err := operations.PackOperations(chain); err != nil {
		return nil, err
	}
	return chain[1:], nil
}

// Export writes every backup into a tar archive compressed with chain.
// It returns the number of backups written.
func (m *Manager) Export(w io.Writer, chain []uint8) (int, error) {
	stages, err := archiveStages(chain)
	if err != nil {
		return 0, err
	}
	infos, err := m.List()
	if err != nil {
		return 0, err
	}

	entries := make([]bundle.Entry, 0, len(infos))
	for _, info := range infos {
		data, err := os.ReadFile(info.Path)
		if err != nil {
			return 0, err
		}
		entries = append(entries, bundle.Entry{
			Name:    info.Name,
			ModTime: info.Time,
			Mode:    int64(m.perms),
			Data:    data,
		})
	}

	archive, err := bundle.Pack(entries)
	if err != nil {
		return 0, err
	}
	if archive, err = operations.ApplyChain(archive, stages); err != nil {
		return 0, err
	}
	if _, err := w.Write(archive); err != nil {
		return 0, fmt.Errorf("writing archive: %w", err)
	}
	m.logger.Info("📦 Backups exported", "count", len(entries), "format", operations.ChainString(chain), "size", len(archive))
	return len(entries), nil
}

// Import unpacks an archive written by Export into the backup directory.
// Members that already exist with identical content are skipped and name
// clashes get a collision suffix. It returns the names written.
func (m *Manager) Import(r io.Reader, chain []uint8) ([]string, error) {
	stages, err := archiveStages(chain)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	if data, err = operations.ReverseChain(data, stages); err != nil {
		return nil, err
	}
	entries, err := bundle.Unpack(data)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(m.dir, permissions.DirFor(m.perms)); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	var written []string
	for _, entry := range entries {
		if !strings.EqualFold(filepath.Ext(entry.Name), config.BackupExt) {
			m.logger.Debug("skipping non-backup member", "name", entry.Name)
			continue
		}
		target := filepath.Join(m.dir, entry.Name)
		if same, err := sameContent(target, entry.Data, m.algo); err == nil && same {
			m.logger.Debug("⏭️ Backup already present", "name", entry.Name)
			continue
		}
		path, err := m.reserve(strings.TrimSuffix(entry.Name, filepath.Ext(entry.Name)))
		if err != nil {
			return written, err
		}
		if err := savefile.WriteFileAtomic(path, entry.Data, m.perms, m.logger); err != nil {
			os.Remove(path)
			return written, fmt.Errorf("writing %s: %w", entry.Name, err)
		}
		if !entry.ModTime.IsZero() {
			if err := os.Chtimes(path, entry.ModTime, entry.ModTime); err != nil {
				m.logger.Debug("⚠️ Failed to restore backup mtime", "name", entry.Name, "error", err)
			}
		}
		written = append(written, filepath.Base(path))
	}
	m.logger.Info("📦 Backups imported", "written", len(written), "members", len(entries))
	return written, nil
}

func sameContent(path string, data []byte, algo fingerprint.Algorithm) (bool, error) {
	existing, err := fingerprint.File(path, algo)
	if err != nil {
		return false, err
	}
	incoming, err := fingerprint.Calculate(data, algo)
	if err != nil {
		return false, err
	}
	return existing == incoming, nil
}
