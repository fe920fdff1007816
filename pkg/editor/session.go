// Package editor edits a save's decrypted payload in an external editor.
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/dbs-save/go/dbssave/pkg/backup"
	dbserrors "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/errors"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/logging"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/savefile"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/shellparse"
)

// ErrNoEditor is returned when no editor command is configured.
var ErrNoEditor = errors.New("❌ no editor configured (set DBS_EDITOR, VISUAL or EDITOR)")

// Session edits one save file.
type Session struct {
	Saves *savefile.Service
	// Backups, when set, receives a copy of the save before it is rewritten.
	Backups *backup.Manager
	// Editor is a command line; the temp file path is appended.
	Editor string
	// Force allows editing saves that fail checksum or magic validation.
	Force       bool
	LockTimeout time.Duration
	// TempDir defaults to os.TempDir.
	TempDir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger hclog.Logger
}

// Outcome reports what Run did.
type Outcome struct {
	Changed bool
	Backup  *backup.Info
}

// Run locks savePath, opens its payload in the editor and writes it back
// if the content changed.
func (s *Session) Run(ctx context.Context, savePath string) (*Outcome, error) {
	logger := logging.OrNull(s.Logger).Named("editor")

	argv, err := shellparse.Split(s.Editor)
	if err != nil {
		return nil, fmt.Errorf("failed to parse editor command %q: %w", s.Editor, err)
	}
	if len(argv) == 0 {
		return nil, ErrNoEditor
	}

	lock, err := savefile.AcquireLock(ctx, savePath, s.LockTimeout, logger)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	loaded, err := s.Saves.Load(savePath)
	if err != nil {
		return nil, err
	}
	if !loaded.Genuine() {
		if !s.Force {
			return nil, fmt.Errorf("%w: %s", dbserrors.ErrNotGenuine, savePath)
		}
		logger.Warn("⚠️ Editing a save that failed validation", "path", savePath)
	}

	tmp, err := os.CreateTemp(s.TempDir, "dbs-save-*.txt")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	original := loaded.Payload()
	if _, err := tmp.Write(original); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], tmpPath)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if s.Stdin != nil {
		cmd.Stdin = s.Stdin
	}
	if s.Stdout != nil {
		cmd.Stdout = s.Stdout
	}
	if s.Stderr != nil {
		cmd.Stderr = s.Stderr
	}
	logger.Debug("📝 Launching editor", "argv", cmd.Args)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("editor %s: %w", filepath.Base(argv[0]), err)
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(edited, original) {
		logger.Info("No changes, save left untouched", "path", savePath)
		return &Outcome{}, nil
	}

	out := &Outcome{Changed: true}
	if s.Backups != nil {
		if out.Backup, err = s.Backups.Create(savePath); err != nil {
			return nil, fmt.Errorf("backing up before write: %w", err)
		}
	}
	if err := s.Saves.Save(savePath, edited); err != nil {
		return out, err
	}
	return out, nil
}
