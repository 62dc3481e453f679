package config

import (
	"os"
	"path/filepath"
)

// AppDir returns the directory holding the running executable.
// Falls back to the working directory when the executable cannot be located.
func AppDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// ResolvePath makes a relative path relative to AppDir.
func ResolvePath(path string) string {
	if path == "" {
		path = DefaultFileName
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(AppDir(), path)
}

// DefaultPath returns the absolute path of config.json next to the executable.
func DefaultPath() string {
	return ResolvePath(DefaultFileName)
}
