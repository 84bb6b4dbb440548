// Package platform resolves OS-specific locations: the grans data
// directory, the upstream document API's credential file, and the
// clipboard command used by the CLI's --copy flags.
package platform

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var errNoHome = errors.New("platform: cannot determine home directory")

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return os.Getenv("USERPROFILE")
}

// DataDir returns the directory grans uses for its local store, logs, and
// sync credentials. $XDG_DATA_HOME/grans takes precedence; otherwise
// ~/Library/Application Support/grans on macOS, or ~/.local/share/grans
// everywhere else (including WSL).
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "grans"), nil
	}

	home := homeDir()
	if home == "" {
		return "", errNoHome
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "grans"), nil
	}
	return filepath.Join(home, ".local", "share", "grans"), nil
}

// EnsureDataDir creates the data directory if it does not already exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultStorePath returns the default path for the local archive database.
func DefaultStorePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "grans.db"), nil
}

// IsWSL reports whether the process is running under Windows Subsystem for
// Linux, detected via markers in /proc/version.
func IsWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	lower := strings.ToLower(string(data))
	return strings.Contains(lower, "microsoft") || strings.Contains(lower, "wsl")
}
