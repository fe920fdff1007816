package savefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	dbserrors "github.com/provide-io/dbs-save/go/dbssave/pkg/dbs/errors"
	"github.com/provide-io/dbs-save/go/dbssave/pkg/logging"
)

// LockSuffix is appended to a save path to name its lock file.
const LockSuffix = ".lock"

const lockPollInterval = 100 * time.Millisecond

// Lock is an exclusive, advisory PID lock on one save file.
type Lock struct {
	path   string
	logger hclog.Logger
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// TryLock attempts to lock savePath. It returns ErrLocked when a live
// process holds the lock. Locks left behind by dead processes, or holding
// no readable PID, are removed first.
func TryLock(savePath string, logger hclog.Logger) (*Lock, error) {
	logger = logging.OrNull(logger)
	lockPath := savePath + LockSuffix

	if data, err := os.ReadFile(lockPath); err == nil {
		oldPid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
		switch {
		case perr != nil:
			logger.Info("🧹 Removing invalid lock file (couldn't parse PID)", "path", lockPath)
			os.Remove(lockPath)
		case oldPid != os.Getpid() && !processRunning(oldPid):
			logger.Info("🧹 Removing stale lock from dead process", "pid", oldPid)
			os.Remove(lockPath)
		default:
			logger.Debug("🔒 Lock held by active process", "pid", oldPid)
			return nil, fmt.Errorf("%w: %s (pid %d)", dbserrors.ErrLocked, savePath, oldPid)
		}
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", dbserrors.ErrLocked, savePath)
		}
		return nil, err
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		os.Remove(lockPath)
		return nil, err
	}

	logger.Debug("🔒 Acquired save lock", "path", lockPath, "pid", os.Getpid())
	return &Lock{path: lockPath, logger: logger}, nil
}

// AcquireLock retries TryLock until it succeeds, timeout elapses or ctx is
// cancelled. A zero timeout tries exactly once.
func AcquireLock(ctx context.Context, savePath string, timeout time.Duration, logger hclog.Logger) (*Lock, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		lock, err := TryLock(savePath, logger)
		if err == nil || !errors.Is(err, dbserrors.ErrLocked) || !time.Now().Before(deadline) {
			return lock, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release removes the lock file.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil {
		l.logger.Debug("⚠️ Failed to remove lock file", "error", err)
	} else {
		l.logger.Debug("🔓 Released save lock", "path", l.path)
	}
}
