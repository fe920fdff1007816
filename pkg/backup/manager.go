// Package backup keeps timestamped copies of the save file.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/dbs-save/go/dbssave/internal/config"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/container"
	dbserrors "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/errors"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/logging"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/savefile"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/fingerprint"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/permissions"
)

// Options configures a Manager.
type Options struct {
	// Dir holds the .bak files.
	Dir string
	// SavePath is the live save restored into.
	SavePath    string
	Perms       os.FileMode
	Fingerprint fingerprint.Algorithm
	Codec       *container.Codec
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager creates, lists, restores and prunes backups.
type Manager struct {
	dir      string
	savePath string
	perms    os.FileMode
	algo     fingerprint.Algorithm
	codec    *container.Codec
	now      func() time.Time
	logger   hclog.Logger
}

// Info describes one backup file.
type Info struct {
	Name        string
	Path        string
	Size        int64
	Time        time.Time
	Fingerprint string
	// Valid is true when the file decodes and its checksum matches.
	Valid     bool
	Emergency bool

	seq int
}

// NewManager creates a backup manager.
func NewManager(opts Options, logger hclog.Logger) *Manager {
	m := &Manager{
		dir:      opts.Dir,
		savePath: opts.SavePath,
		perms:    opts.Perms,
		algo:     opts.Fingerprint,
		codec:    opts.Codec,
		now:      opts.Now,
		logger:   logging.OrNull(logger).Named("backup"),
	}
	if m.perms == 0 {
		m.perms = permissions.DefaultFilePerms
	}
	if m.codec == nil {
		m.codec = container.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Create copies source into a new timestamped backup. When the newest
// backup already has the same fingerprint it is returned instead and
// nothing is written.
func (m *Manager) Create(source string) (*Info, error) {
	sum, err := fingerprint.File(source, m.algo)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", dbserrors.ErrSaveNotFound, source)
		}
		return nil, err
	}

	existing, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && existing[0].Fingerprint == sum {
		m.logger.Info("⏭️ Backup skipped, save unchanged", "backup", existing[0].Name)
		return &existing[0], nil
	}

	return m.copyIn(source, "")
}

func (m *Manager) copyIn(source, prefix string) (*Info, error) {
	if err := os.MkdirAll(m.dir, permissions.DirFor(m.perms)); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	path, err := m.reserve(prefix + m.now().Format(config.TimestampLayout))
	if err != nil {
		return nil, err
	}
	if err := savefile.WriteFileAtomic(path, data, m.perms, m.logger); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	m.logger.Info("🗄️ Backup created", "path", path, "size", len(data))
	return m.describe(path)
}

// reserve claims a fresh file name for stem, adding _1, _2, ... on collision.
func (m *Manager) reserve(stem string) (string, error) {
	for seq := 0; seq < 1000; seq++ {
		name := stem
		if seq > 0 {
			name = fmt.Sprintf("%s_%d", stem, seq)
		}
		path := filepath.Join(m.dir, name+config.BackupExt)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, m.perms)
		if err == nil {
			f.Close()
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free backup name for %s", stem)
}

// List returns all backups, newest first. A missing directory yields none.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), config.BackupExt) {
			continue
		}
		info, err := m.describe(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			m.logger.Warn("⚠️ Skipping unreadable backup", "name", entry.Name(), "error", err)
			continue
		}
		infos = append(infos, *info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.After(b.Time)
		}
		if a.seq != b.seq {
			return a.seq > b.seq
		}
		return a.Name > b.Name
	})
	return infos, nil
}

func (m *Manager) describe(path string) (*Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sum, err := fingerprint.Calculate(data, m.algo)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	info := &Info{
		Name:        name,
		Path:        path,
		Size:        stat.Size(),
		Time:        stat.ModTime(),
		Fingerprint: sum,
	}
	if unpacked, err := m.codec.Decode(data); err == nil {
		info.Valid = unpacked.ChecksumValid()
	}

	if ts, seq, emergency, ok := parseName(name); ok {
		info.Time, info.seq, info.Emergency = ts, seq, emergency
	}
	return info, nil
}

// parseName reads the timestamp and collision suffix out of a backup name.
func parseName(name string) (ts time.Time, seq int, emergency bool, ok bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if strings.HasPrefix(stem, config.EmergencyPrefix) {
		stem = strings.TrimPrefix(stem, config.EmergencyPrefix)
		emergency = true
	}
	if i := strings.LastIndexByte(stem, '_'); i > 0 {
		if n, err := strconv.Atoi(stem[i+1:]); err == nil {
			seq = n
			stem = stem[:i]
		}
	}
	ts, err := time.ParseInLocation(config.TimestampLayout, stem, time.Local)
	if err != nil {
		return time.Time{}, 0, false, false
	}
	return ts, seq, emergency, true
}

// Resolve finds a backup by file name inside the backup directory, or by
// path.
func (m *Manager) Resolve(name string) (string, error) {
	path := name
	if filepath.Base(name) == name {
		path = filepath.Join(m.dir, name)
	}
	stat, err := os.Stat(path)
	if err != nil || stat.IsDir() {
		return "", fmt.Errorf("%w: %s", dbserrors.ErrBackupNotFound, name)
	}
	return path, nil
}

// Restore copies a backup over the live save. The current save, if any, is
// first kept as an emergency backup which is returned.
func (m *Manager) Restore(name string) (*Info, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	if m.savePath == "" {
		return nil, fmt.Errorf("no save path configured")
	}

	var emergency *Info
	if _, err := os.Stat(m.savePath); err == nil {
		if emergency, err = m.copyIn(m.savePath, config.EmergencyPrefix); err != nil {
			return nil, fmt.Errorf("creating emergency backup: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(m.savePath), permissions.DirFor(m.perms)); err != nil {
		return emergency, err
	}
	if err := savefile.CopyFile(path, m.savePath, m.perms, m.logger); err != nil {
		return emergency, fmt.Errorf("restoring %s: %w", filepath.Base(path), err)
	}
	m.logger.Info("♻️ Backup restored", "backup", filepath.Base(path), "save", m.savePath)
	return emergency, nil
}

// Prune deletes the oldest backups beyond keep. keep <= 0 keeps all.
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	infos, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(infos) <= keep {
		return nil, nil
	}

	var removed []string
	for _, info := range infos[keep:] {
		if err := os.Remove(info.Path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", info.Name, err)
		}
		m.logger.Debug("🧹 Pruned backup", "name", info.Name)
		removed = append(removed, info.Name)
	}
	m.logger.Info("🧹 Pruned backups", "removed", len(removed), "kept", keep)
	return removed, nil
}
