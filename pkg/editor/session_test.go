//go:build !windows

package editor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/dbs-save/go/dbssave/pkg/backup"
	dbserrors "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/errors"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/savefile"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/fingerprint"
)

type fixture struct {
	session  *Session
	savePath string
	backups  *backup.Manager
}

func newFixture(t *testing.T, editorCmd string) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := hclog.New(&hclog.LoggerOptions{Name: "editor_test", Level: hclog.Trace})
	saves := savefile.NewService(nil, 0, logger)
	savePath := filepath.Join(dir, "save.bin")
	require.NoError(t, saves.Save(savePath, []byte("gems: 1\n")))

	backups := backup.NewManager(backup.Options{
		Dir:         filepath.Join(dir, "backup"),
		SavePath:    savePath,
		Fingerprint: fingerprint.SHA256,
	}, logger)

	var out bytes.Buffer
	return &fixture{
		session: &Session{
			Saves:       saves,
			Backups:     backups,
			Editor:      editorCmd,
			LockTimeout: 100 * time.Millisecond,
			TempDir:     t.TempDir(),
			Stdin:       bytes.NewReader(nil),
			Stdout:      &out,
			Stderr:      &out,
			Logger:      logger,
		},
		savePath: savePath,
		backups:  backups,
	}
}

func TestRunWritesChanges(t *testing.T) {
	f := newFixture(t, `sh -c 'printf "gems: 999\n" > "$1"' editor`)

	outcome, err := f.session.Run(context.Background(), f.savePath)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	require.NotNil(t, outcome.Backup)

	loaded, err := f.session.Saves.Load(f.savePath)
	require.NoError(t, err)
	assert.Equal(t, "gems: 999\n", string(loaded.Payload()))
	assert.True(t, loaded.Genuine())

	infos, err := f.backups.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	old, err := f.session.Saves.Load(infos[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "gems: 1\n", string(old.Payload()))

	assert.NoFileExists(t, f.savePath+savefile.LockSuffix)
}

func TestRunUnchanged(t *testing.T) {
	f := newFixture(t, "true")
	before, err := os.ReadFile(f.savePath)
	require.NoError(t, err)

	outcome, err := f.session.Run(context.Background(), f.savePath)
	require.NoError(t, err)
	assert.False(t, outcome.Changed)

	after, err := os.ReadFile(f.savePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	infos, err := f.backups.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestRunEditorFails(t *testing.T) {
	f := newFixture(t, "false")
	_, err := f.session.Run(context.Background(), f.savePath)
	assert.Error(t, err)
}

func TestRunRefusesTamperedSave(t *testing.T) {
	f := newFixture(t, "true")
	data, err := os.ReadFile(f.savePath)
	require.NoError(t, err)
	data[0] ^= 1
	require.NoError(t, os.WriteFile(f.savePath, data, 0o600))

	_, err = f.session.Run(context.Background(), f.savePath)
	assert.True(t, errors.Is(err, dbserrors.ErrNotGenuine), "got %v", err)

	f.session.Force = true
	_, err = f.session.Run(context.Background(), f.savePath)
	assert.NoError(t, err)
}

func TestRunLocked(t *testing.T) {
	f := newFixture(t, "true")
	lock, err := savefile.TryLock(f.savePath, nil)
	require.NoError(t, err)
	defer lock.Release()

	_, err = f.session.Run(context.Background(), f.savePath)
	assert.True(t, errors.Is(err, dbserrors.ErrLocked), "got %v", err)
}

func TestRunNoEditor(t *testing.T) {
	f := newFixture(t, "  ")
	_, err := f.session.Run(context.Background(), f.savePath)
	assert.ErrorIs(t, err, ErrNoEditor)
}
