// Package paths normalizes source file paths so the same physical file is
// always keyed identically, and maps source paths to cache file names.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize resolves a path to its absolute, symlink-free form with forward
// slashes. Files that do not exist yet normalize structurally.
func Normalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// If the file doesn't exist yet, use the lexically cleaned path.
		if os.IsNotExist(err) {
			resolved = filepath.Clean(abs)
		} else {
			return "", err
		}
	}
	return filepath.ToSlash(resolved), nil
}

// NormalizeFallback is Normalize degrading to the cleaned input on error.
func NormalizeFallback(path string) string {
	if n, err := Normalize(path); err == nil {
		return n
	}
	return filepath.ToSlash(filepath.Clean(path))
}

// EscapeFileName flattens a source path into a single cache file name:
// separators and drive colons become '@'.
func EscapeFileName(path string) string {
	r := strings.NewReplacer("/", "@", "\\", "@", ":", "@")
	return r.Replace(path)
}

// CachePath maps a normalized source path to its cache entry location under
// cacheDir, with the format-specific extension ("json" or "blob").
func CachePath(cacheDir, sourcePath, ext string) string {
	return filepath.Join(cacheDir, EscapeFileName(sourcePath)+"."+ext)
}

// IsAbsolute reports whether path is absolute on this platform or in the
// forward-slash form used in index records.
func IsAbsolute(path string) bool {
	return filepath.IsAbs(path) || strings.HasPrefix(path, "/")
}
