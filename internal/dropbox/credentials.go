// Package dropbox implements the Dropbox-backed remote sync protocol: a
// PKCE OAuth flow, an upload/download/metadata HTTP client, and the
// push/pull/status operations that keep a local archive database
// mirrored to a single file pair in the user's Dropbox app folder.
package dropbox

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/grans-cli/grans/internal/embed"
	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/platform"
)

// Credentials holds the long-lived OAuth state persisted between grans
// invocations. The refresh token is the only secret; access tokens are
// fetched fresh for each push/pull and never written to disk.
type Credentials struct {
	RefreshToken string `toml:"refresh_token,omitempty"`
	LastPushTime *int64 `toml:"last_push_time,omitempty"`
	LastPullTime *int64 `toml:"last_pull_time,omitempty"`
}

// IsAuthenticated reports whether a refresh token is present.
func (c *Credentials) IsAuthenticated() bool {
	return c.RefreshToken != ""
}

// ClearAuth discards the refresh token, leaving push/pull timestamps.
func (c *Credentials) ClearAuth() {
	c.RefreshToken = ""
}

// CredentialsPath returns <data-dir>/sync.toml.
func CredentialsPath() (string, error) {
	dir, err := platform.DataDir()
	if err != nil {
		return "", grerrors.ConfigError("failed to resolve data directory", err)
	}
	return filepath.Join(dir, "sync.toml"), nil
}

// LoadCredentials reads sync.toml, returning a zero-value Credentials if
// the file doesn't exist yet.
func LoadCredentials() (*Credentials, error) {
	path, err := CredentialsPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Credentials{}, nil
	}

	var creds Credentials
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		return nil, grerrors.ConfigError("failed to parse sync credentials", err)
	}
	return &creds, nil
}

// Save writes c to sync.toml atomically: encode to a temp file in the
// same directory, restrict permissions to the owner, then rename over
// the target. A file lock guards against a concurrent grans process
// racing the same write.
func (c *Credentials) Save() error {
	path, err := CredentialsPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return grerrors.StoreIOError("failed to create data directory", err)
	}

	lock := embed.NewFileLock(dir)
	if err := lock.Lock(); err != nil {
		return grerrors.StoreIOError("failed to acquire sync credentials lock", err)
	}
	defer lock.Unlock()

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return grerrors.StoreIOError("failed to create temp credentials file", err)
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return grerrors.StoreIOError("failed to encode sync credentials", err)
	}
	if err := f.Close(); err != nil {
		return grerrors.StoreIOError("failed to close temp credentials file", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0o600); err != nil {
			return grerrors.StoreIOError("failed to restrict credentials file permissions", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return grerrors.StoreIOError("failed to replace sync credentials file", err)
	}
	return nil
}
