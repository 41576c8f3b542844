package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"plain file", filepath.Join(dir, "disk.popt.txt"), false},
		{"missing subdirectory", filepath.Join(dir, "runs", "a", "disk"), false},
		{"dot segments inside", filepath.Join(dir, "a", "..", "disk"), false},
		{"parent", filepath.Join(dir, "..", "disk"), true},
		{"absolute elsewhere", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathWithinDirectory_Symlink(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(dir, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(link, "disk"), dir); err == nil {
		t.Error("expected a symlink out of the directory to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"logMstar":       "logMstar",
		"log Mstar":      "log_Mstar",
		"../../etc":      "etc",
		"a///b":          "a_b",
		"":               "unknown",
		"...":            "unknown",
		"offvsys (km/s)": "offvsys_km_s",
		"héllo":          "h_llo",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SanitizeFilename(strings.Repeat("x", 300)); len(got) != maxFilenameLen {
		t.Errorf("long name has length %d, want %d", len(got), maxFilenameLen)
	}
}
