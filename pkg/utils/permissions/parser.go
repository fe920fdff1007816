// Package permissions parses the octal file modes used for save and backup
// files.
package permissions

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default permission constants (user-only access)
const (
	DefaultFilePerms os.FileMode = 0o600
	DefaultDirPerms  os.FileMode = 0o700
)

// Parse parses an octal permission string such as "644", "0644" or "0o644".
// An empty string yields fallback.
func Parse(s string, fallback os.FileMode) (os.FileMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0")
	if digits == "" {
		digits = "0"
	}
	val, err := strconv.ParseUint(digits, 8, 32)
	if err != nil {
		return fallback, fmt.Errorf("invalid permission string %q: %w", s, err)
	}
	if val > 0o777 {
		return fallback, fmt.Errorf("invalid permission string %q: only rwx bits are allowed", s)
	}
	return os.FileMode(val), nil
}

// Format formats a permission value as an octal string
func Format(mode os.FileMode) string {
	return fmt.Sprintf("0%o", mode.Perm())
}

// DirFor returns the directory mode matching a file mode: every class that
// may read a file may also traverse its directory.
func DirFor(mode os.FileMode) os.FileMode {
	dir := mode.Perm() | 0o700
	for _, bits := range []os.FileMode{0o040, 0o004} {
		if mode&bits != 0 {
			dir |= bits | bits>>2
		}
	}
	return dir
}
