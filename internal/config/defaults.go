package config

import "time"

// =================================
// File layout defaults
// =================================
const (
	BackupDirName   = "backup"
	BackupExt       = ".bak"
	EmergencyPrefix = "emergency_before_restore_"
	TimestampLayout = "2006-01-02_15-04-05"
	EnvFileName     = ".env"
)

// =================================
// Behaviour defaults
// =================================
const (
	DefaultKeepBackups = 0 // keep everything
	DefaultLockTimeout = 10 * time.Second
	DefaultWorkers     = 4
	DefaultArchive     = "tar.gz"
)

// =================================
// Environment variables
// =================================
const (
	EnvEnvFile     = "DBS_ENV_FILE"
	EnvBackupDir   = "DBS_BACKUP_DIR"
	EnvFilePerms   = "DBS_FILE_PERMS"
	EnvKeepBackups = "DBS_KEEP_BACKUPS"
	EnvEditor      = "DBS_EDITOR"
	EnvFingerprint = "DBS_FINGERPRINT"
)
