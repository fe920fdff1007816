package permissions

import (
	"os"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    os.FileMode
		wantErr bool
	}{
		{"", DefaultFilePerms, false},
		{"644", 0o644, false},
		{"0644", 0o644, false},
		{"0o640", 0o640, false},
		{" 600 ", 0o600, false},
		{"0", 0, false},
		{"888", DefaultFilePerms, true},
		{"1777", DefaultFilePerms, true},
		{"rw-", DefaultFilePerms, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in, DefaultFilePerms)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %o, want %o", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := Format(0o640); got != "0640" {
		t.Errorf("Format = %q", got)
	}
}

func TestDirFor(t *testing.T) {
	tests := []struct {
		file os.FileMode
		want os.FileMode
	}{
		{0o600, 0o700},
		{0o640, 0o750},
		{0o644, 0o755},
	}
	for _, tt := range tests {
		if got := DirFor(tt.file); got != tt.want {
			t.Errorf("DirFor(%o) = %o, want %o", tt.file, got, tt.want)
		}
	}
}
