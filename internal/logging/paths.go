package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grans-cli/grans/internal/platform"
)

// DefaultLogDir returns the default log directory
// (<data-dir>/logs, e.g. ~/.local/share/grans/logs).
// Falls back to a temp directory if the data directory is unavailable.
func DefaultLogDir() string {
	dir, err := platform.DataDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "grans", "logs")
	}
	return filepath.Join(dir, "logs")
}

// DefaultLogPath returns the default log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "grans.log")
}

// FindLogFile attempts to find the log file for viewing.
// Priority:
//  1. Explicit path (if provided)
//  2. <data-dir>/logs/grans.log
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	defaultPath := DefaultLogPath()
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath, nil
	}

	return "", fmt.Errorf("no log file found. Run with --verbose first.\nExpected at: %s", defaultPath)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}
