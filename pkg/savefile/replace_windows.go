//go:build windows

package savefile

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sys/windows"
)

// atomicReplace moves sourcePath over destPath with MoveFileEx, retrying
// while another process (usually the game) holds the file open.
func atomicReplace(sourcePath, destPath string, logger hclog.Logger) error {
	fromPtr, err := windows.UTF16PtrFromString(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to convert source path to UTF-16: %w", err)
	}
	toPtr, err := windows.UTF16PtrFromString(destPath)
	if err != nil {
		return fmt.Errorf("failed to convert dest path to UTF-16: %w", err)
	}

	var flags uint32 = windows.MOVEFILE_REPLACE_EXISTING | windows.MOVEFILE_WRITE_THROUGH

	const maxAttempts = 3
	delay := 50 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err = windows.MoveFileEx(fromPtr, toPtr, flags)
		if err == nil {
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("failed after %d attempts (Windows file lock): %w", maxAttempts, err)
		}
		logger.Debug("retrying file replacement", "attempt", attempt, "next_delay_ms", delay.Milliseconds(), "error", err)
		time.Sleep(delay)
		delay *= 2
	}
}

// processRunning checks whether pid is alive by opening a handle to it.
func processRunning(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	const stillActive = 259
	return code == stillActive
}
