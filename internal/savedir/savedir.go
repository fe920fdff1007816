// Package savedir locates the game's save directory
package savedir

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const (
	// EnvSaveDir overrides the platform save directory.
	EnvSaveDir = "DBS_SAVE_DIR"

	Publisher = "Terrible Toybox"
	Game      = "Death by Scrolling"
	SaveFile  = "save.bin"
)

// ErrUnsupportedPlatform is returned when no save directory is known for
// the running OS and no override is set.
var ErrUnsupportedPlatform = errors.New("no known save directory for this platform")

// Locate returns the save directory for the running platform
func Locate() (string, error) {
	return Lookup(runtime.GOOS, os.Getenv)
}

// Lookup resolves the save directory for goos using getenv.
func Lookup(goos string, getenv func(string) string) (string, error) {
	if dir := getenv(EnvSaveDir); dir != "" {
		return dir, nil
	}

	var base string
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		if xdgData := getenv("XDG_DATA_HOME"); xdgData != "" {
			base = xdgData
		} else if home := getenv("HOME"); home != "" {
			base = filepath.Join(home, ".local", "share")
		}
	case "darwin":
		if home := getenv("HOME"); home != "" {
			base = filepath.Join(home, "Library", "Application Support")
		}
	case "windows":
		if localAppData := getenv("LOCALAPPDATA"); localAppData != "" {
			base = localAppData
		} else if profile := getenv("USERPROFILE"); profile != "" {
			base = filepath.Join(profile, "AppData", "Local")
		}
	}

	if base == "" {
		return "", ErrUnsupportedPlatform
	}
	return filepath.Join(base, Publisher, Game), nil
}

// SavePath returns the path of save.bin inside dir
func SavePath(dir string) string {
	return filepath.Join(dir, SaveFile)
}

// Exists reports whether dir contains a save.bin regular file
func Exists(dir string) bool {
	info, err := os.Stat(SavePath(dir))
	return err == nil && info.Mode().IsRegular()
}
