package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/container"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(newApp(strings.NewReader(stdin), &stdout, &stderr))
	root.SetArgs(args)
	err := root.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func setupSaveDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{"DBS_ENV_FILE", "DBS_BACKUP_DIR", "DBS_FILE_PERMS", "DBS_KEEP_BACKUPS", "DBS_FINGERPRINT", "DBS_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Setenv("DBS_SAVE_DIR", dir)
	t.Setenv("DBS_LOG_LEVEL", "error")
	return dir
}

func writeSave(t *testing.T, path, payload string) {
	t.Helper()
	cipher, err := container.Encode([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, cipher, 0o600))
}

func TestVersionFlag(t *testing.T) {
	setupSaveDir(t)
	res := run(t, "", "-V")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "dbs-save "+version)
}

func TestEncryptDecrypt(t *testing.T) {
	dir := setupSaveDir(t)
	plain := filepath.Join(dir, "plain.txt")
	cipher := filepath.Join(dir, "out.bin")
	back := filepath.Join(dir, "back.txt")
	require.NoError(t, os.WriteFile(plain, []byte("gems: 42\n"), 0o600))

	res := run(t, "", "encrypt", plain, cipher)
	require.NoError(t, res.err, res.stderr)

	res = run(t, "", "decrypt", cipher, back)
	require.NoError(t, res.err, res.stderr)
	data, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, "gems: 42\n", string(data))

	res = run(t, "", "decrypt", cipher)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "gems: 42\n", res.stdout)
}

func TestEncryptFromStdinWithBackup(t *testing.T) {
	dir := setupSaveDir(t)
	save := filepath.Join(dir, "save.bin")
	writeSave(t, save, "old\n")

	res := run(t, "new\n", "encrypt", "--backup", "-", save)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Backed up")

	entries, err := os.ReadDir(filepath.Join(dir, "backup"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	res = run(t, "", "decrypt", save)
	require.NoError(t, res.err)
	assert.Equal(t, "new\n", res.stdout)
}

func TestDecryptInvalid(t *testing.T) {
	dir := setupSaveDir(t)
	bad := filepath.Join(dir, "bad.bin")
	require.NoError(t, os.WriteFile(bad, []byte("tiny"), 0o600))

	res := run(t, "", "decrypt", bad)
	assert.Error(t, res.err)
}

func TestInspect(t *testing.T) {
	dir := setupSaveDir(t)
	writeSave(t, filepath.Join(dir, "save.bin"), "AB")

	res := run(t, "", "inspect")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Padding:      6")
	assert.Contains(t, res.stdout, "Magic:        0x0169027d stored")
	assert.Contains(t, res.stdout, "Fingerprint:  blake2b:")
	assert.NotContains(t, res.stdout, "MISMATCH")
}

func TestVerify(t *testing.T) {
	dir := setupSaveDir(t)
	good := filepath.Join(dir, "good.bin")
	bad := filepath.Join(dir, "bad.bin")
	writeSave(t, good, "fine")
	writeSave(t, bad, "broken")
	data, err := os.ReadFile(bad)
	require.NoError(t, err)
	data[1] ^= 0x10
	require.NoError(t, os.WriteFile(bad, data, 0o600))

	res := run(t, "", "verify", good)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "OK")

	res = run(t, "", "verify", "-w", "2", good, bad)
	assert.ErrorIs(t, res.err, errVerifyFailed)
	assert.Contains(t, res.stdout, "MISMATCH")
	assert.Contains(t, res.stderr, "1 of 2 files failed")
}

func TestVerifySuccessExitStatus(t *testing.T) {
	dir := setupSaveDir(t)
	writeSave(t, filepath.Join(dir, "save.bin"), "located")

	res := run(t, "", "verify")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "OK")
	assert.Contains(t, res.stdout, filepath.Join(dir, "save.bin"))

	var paths []string
	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		path := filepath.Join(dir, name)
		writeSave(t, path, name)
		paths = append(paths, path)
	}
	res = run(t, "", append([]string{"verify", "-w", "2"}, paths...)...)
	require.NoError(t, res.err, res.stderr)
	assert.NotContains(t, res.stdout, "ERROR")
	assert.NotContains(t, res.stderr, "failed")

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, len(paths))
	for i, line := range lines {
		assert.True(t, strings.HasSuffix(line, paths[i]), "line %d: %q", i, line)
	}
}

func TestLocate(t *testing.T) {
	dir := setupSaveDir(t)
	res := run(t, "", "locate")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, dir)
	assert.Contains(t, res.stdout, "missing")

	writeSave(t, filepath.Join(dir, "save.bin"), "x")
	res = run(t, "", "--save-dir", dir, "locate")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "found")
}

func TestBackupCommands(t *testing.T) {
	dir := setupSaveDir(t)
	save := filepath.Join(dir, "save.bin")
	writeSave(t, save, "first")

	res := run(t, "", "backup", "create")
	require.NoError(t, res.err, res.stderr)
	first := strings.TrimSpace(res.stdout)
	assert.FileExists(t, first)

	res = run(t, "", "backup", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, filepath.Base(first))
	assert.Contains(t, res.stdout, "yes")

	writeSave(t, save, "second")
	res = run(t, "", "backup", "restore", filepath.Base(first))
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "emergency_before_restore_")

	res = run(t, "", "decrypt", save)
	require.NoError(t, res.err)
	assert.Equal(t, "first", res.stdout)

	archive := filepath.Join(t.TempDir(), "backups.tar.lz4")
	res = run(t, "", "backup", "export", archive)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Exported 2 backups")

	other := t.TempDir()
	res = run(t, "", "--backup-dir", other, "backup", "import", archive)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "2 backups imported")

	res = run(t, "", "--backup-dir", other, "backup", "prune", "--keep", "1")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "1 backups removed")

	res = run(t, "", "backup", "prune")
	assert.Error(t, res.err, "prune without a keep count")
}
