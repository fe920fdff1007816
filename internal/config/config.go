// Package config resolves dbs-save settings from defaults, an optional .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"

	"github.com/provide-io/dbs-save/go/dbssave/internal/savedir"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/logging"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/fingerprint"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/utils/permissions"
)

// Config holds the resolved settings.
type Config struct {
	SaveDir     string
	BackupDir   string
	FilePerms   os.FileMode
	KeepBackups int
	Editor      string
	LogLevel    string
	Fingerprint fingerprint.Algorithm
	LockTimeout time.Duration
}

// SavePath returns the path of save.bin.
func (c *Config) SavePath() string {
	return savedir.SavePath(c.SaveDir)
}

// DirPerms returns the directory mode matching FilePerms.
func (c *Config) DirPerms() os.FileMode {
	return permissions.DirFor(c.FilePerms)
}

// LoadEnvFile loads path (or DBS_ENV_FILE, or ./.env) into the process
// environment. Variables that are already set are not overridden. A missing
// default file is not an error; a missing explicit file is.
func LoadEnvFile(path string, logger hclog.Logger) error {
	logger = logging.OrNull(logger)

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvEnvFile)
		explicit = path != ""
	}
	if !explicit {
		path = EnvFileName
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			logger.Trace("no env file", "path", path)
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	logger.Debug("loaded env file", "path", path)
	return nil
}

// Load resolves the configuration from the environment.
func Load(logger hclog.Logger) (*Config, error) {
	logger = logging.OrNull(logger)

	cfg := &Config{
		KeepBackups: DefaultKeepBackups,
		LogLevel:    logging.GetLogLevel(),
		LockTimeout: DefaultLockTimeout,
	}

	dir, err := savedir.Locate()
	if err != nil {
		// only fatal once a command needs the save directory
		logger.Debug("save directory not located", "error", err)
	}
	cfg.SaveDir = dir

	cfg.BackupDir = os.Getenv(EnvBackupDir)

	if cfg.FilePerms, err = permissions.Parse(os.Getenv(EnvFilePerms), permissions.DefaultFilePerms); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvFilePerms, err)
	}

	if v := strings.TrimSpace(os.Getenv(EnvKeepBackups)); v != "" {
		keep, err := strconv.Atoi(v)
		if err != nil || keep < 0 {
			return nil, fmt.Errorf("%s: expected a non-negative integer, got %q", EnvKeepBackups, v)
		}
		cfg.KeepBackups = keep
	}

	if cfg.Fingerprint, err = fingerprint.ParseAlgorithm(os.Getenv(EnvFingerprint)); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvFingerprint, err)
	}

	cfg.Editor = firstNonEmpty(os.Getenv(EnvEditor), os.Getenv("VISUAL"), os.Getenv("EDITOR"))

	logger.Debug("configuration resolved",
		"save_dir", cfg.SaveDir,
		"backup_dir", cfg.BackupDir,
		"file_perms", permissions.Format(cfg.FilePerms),
		"keep_backups", cfg.KeepBackups,
		"fingerprint", cfg.Fingerprint.String())
	return cfg, nil
}

// Finalize fills derived values after flags have been applied.
func (c *Config) Finalize() {
	if c.BackupDir == "" && c.SaveDir != "" {
		c.BackupDir = filepath.Join(c.SaveDir, BackupDirName)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
