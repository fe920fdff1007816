// Package savefile reads and writes save files through the container codec.
package savefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/container"
	dbserrors "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/errors"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/logging"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/permissions"
)

// Service loads and stores save files
type Service struct {
	codec  *container.Codec
	perms  os.FileMode
	logger hclog.Logger
}

// NewService creates a save file service. A nil codec selects
// container.Default and a zero perms selects owner-only access.
func NewService(codec *container.Codec, perms os.FileMode, logger hclog.Logger) *Service {
	if codec == nil {
		codec = container.Default()
	}
	if perms == 0 {
		perms = permissions.DefaultFilePerms
	}
	return &Service{
		codec:  codec,
		perms:  perms,
		logger: logging.OrNull(logger),
	}
}

// Codec returns the codec used by the service.
func (s *Service) Codec() *container.Codec {
	return s.codec
}

// Loaded is a decoded save file.
type Loaded struct {
	Path     string
	Unpacked *container.Unpacked
	Report   *container.Report
}

// Payload returns the decrypted payload.
func (l *Loaded) Payload() []byte {
	return l.Unpacked.Payload
}

// Genuine reports whether the checksum and magic value are valid.
func (l *Loaded) Genuine() bool {
	return l.Report.Genuine()
}

// Decode decodes an in-memory save.
func (s *Service) Decode(name string, cipher []byte) (*Loaded, error) {
	report, unpacked, err := s.codec.Verify(cipher)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	if !report.ChecksumOK() {
		s.logger.Warn("⚠️ checksum mismatch",
			"path", name,
			"stored", fmt.Sprintf("0x%08x", report.StoredChecksum),
			"calc", fmt.Sprintf("0x%08x", report.ComputedChecksum))
	}
	if !report.MagicOK() {
		s.logger.Warn("⚠️ magic mismatch, wrong key or not a save file",
			"path", name,
			"stored", fmt.Sprintf("0x%08x", report.StoredMagic),
			"expected", fmt.Sprintf("0x%08x", report.ExpectedMagic))
	}
	return &Loaded{Path: name, Unpacked: unpacked, Report: report}, nil
}

// Load reads and decodes the save at path. A checksum or magic mismatch is
// logged and reported through Loaded.Genuine, not returned as an error.
func (s *Service) Load(path string) (*Loaded, error) {
	cipher, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", dbserrors.ErrSaveNotFound, path)
		}
		return nil, err
	}
	s.logger.Debug("read save", "path", path, "size", len(cipher))
	return s.Decode(path, cipher)
}

// Save encodes payload and atomically replaces path with it.
func (s *Service) Save(path string, payload []byte) error {
	cipher, err := s.codec.Encode(payload)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), permissions.DirFor(s.perms)); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := WriteFileAtomic(path, cipher, s.perms, s.logger); err != nil {
		return err
	}
	s.logger.Info("💾 wrote save", "path", path, "payload", len(payload), "size", len(cipher))
	return nil
}
