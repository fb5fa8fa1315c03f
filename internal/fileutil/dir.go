package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrNoDataDir is returned by DataHome when no per-user data directory can
// be determined for the current platform.
var ErrNoDataDir = errors.New("no per-user data directory available")

// EnsureDir creates path and any missing parents with mode 0755.
// An existing directory is not an error.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// DataHome returns the per-user application data directory:
//
//   - Linux and other Unix: $XDG_DATA_HOME, or ~/.local/share
//   - macOS: ~/Library/Application Support
//   - Windows: %APPDATA%
func DataHome() (string, error) {
	switch runtime.GOOS {
	case "darwin", "windows", "ios":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoDataDir, err)
		}
		return dir, nil
	}

	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" && filepath.IsAbs(dir) {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoDataDir, err)
	}
	return filepath.Join(home, ".local", "share"), nil
}
