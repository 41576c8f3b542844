// Package security guards the file names the CLI derives from user
// input: output prefixes must stay inside the configured output
// directory, and labels embedded in file names are reduced to a safe
// alphabet.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// canonical resolves symlinks in the longest existing prefix of path and
// re-attaches the rest.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	rest := ""
	for dir := abs; ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if filepath.Dir(dir) == dir {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(dir), rest)
	}
}

// ValidatePathWithinDirectory returns an error when filePath, after
// cleaning and symlink resolution, lies outside safeDir. filePath need
// not exist yet.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	p, err := canonical(filePath)
	if err != nil {
		return err
	}
	dir, err := canonical(safeDir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", filePath, safeDir)
	}
	return nil
}

// maxFilenameLen bounds SanitizeFilename output.
const maxFilenameLen = 128

// SanitizeFilename keeps ASCII letters, digits, '.', '_' and '-', folds
// every other run of characters into one underscore and trims leading
// and trailing dots and underscores. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		safe := r < 128 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-')
		if !safe {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
