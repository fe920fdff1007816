//go:build !windows

package savefile

import (
	"fmt"
	"os"
	"syscall"

	"github.com/hashicorp/go-hclog"
)

// atomicReplace renames sourcePath over destPath. Rename is atomic on Unix.
func atomicReplace(sourcePath, destPath string, logger hclog.Logger) error {
	logger.Trace("replacing file", "source", sourcePath, "dest", destPath)
	if err := os.Rename(sourcePath, destPath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// processRunning checks whether pid is alive. Signal 0 performs the
// permission and existence checks without delivering anything.
func processRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
