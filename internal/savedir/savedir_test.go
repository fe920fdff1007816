package savedir

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		goos string
		env  map[string]string
		want string
	}{
		{
			name: "override wins",
			goos: "linux",
			env:  map[string]string{EnvSaveDir: "/custom", "HOME": "/home/u"},
			want: "/custom",
		},
		{
			name: "linux home",
			goos: "linux",
			env:  map[string]string{"HOME": "/home/u"},
			want: filepath.Join("/home/u", ".local", "share", Publisher, Game),
		},
		{
			name: "linux xdg",
			goos: "linux",
			env:  map[string]string{"HOME": "/home/u", "XDG_DATA_HOME": "/data"},
			want: filepath.Join("/data", Publisher, Game),
		},
		{
			name: "darwin",
			goos: "darwin",
			env:  map[string]string{"HOME": "/Users/u"},
			want: filepath.Join("/Users/u", "Library", "Application Support", Publisher, Game),
		},
		{
			name: "windows local app data",
			goos: "windows",
			env:  map[string]string{"LOCALAPPDATA": `C:\Users\u\AppData\Local`},
			want: filepath.Join(`C:\Users\u\AppData\Local`, Publisher, Game),
		},
		{
			name: "windows profile fallback",
			goos: "windows",
			env:  map[string]string{"USERPROFILE": `C:\Users\u`},
			want: filepath.Join(`C:\Users\u`, "AppData", "Local", Publisher, Game),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lookup(tt.goos, envMap(tt.env))
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if got != tt.want {
				t.Errorf("Lookup = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLookupUnsupported(t *testing.T) {
	if _, err := Lookup("plan9", envMap(nil)); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("error = %v, want ErrUnsupportedPlatform", err)
	}
	if _, err := Lookup("linux", envMap(nil)); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("linux without HOME: error = %v", err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Fatal("empty dir reported as having a save")
	}
	if err := os.WriteFile(SavePath(dir), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !Exists(dir) {
		t.Error("save.bin not found")
	}
}
