package dropbox

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"time"

	"github.com/grans-cli/grans/internal/config"
	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/store"
)

const (
	remoteDBName       = "grans.db"
	remoteMetadataName = "sync-metadata.json"
)

// Syncer drives the Dropbox remote sync protocol against one local
// archive database.
type Syncer struct {
	st    *store.Store
	cfg   config.DropboxConfig
	creds *Credentials
}

// New builds a Syncer from the currently loaded credentials.
func New(st *store.Store, cfg config.DropboxConfig) (*Syncer, error) {
	creds, err := LoadCredentials()
	if err != nil {
		return nil, err
	}
	return &Syncer{st: st, cfg: cfg, creds: creds}, nil
}

func (s *Syncer) remotePath(name string) string {
	return path.Join("/", s.cfg.RemoteFolder, name)
}

// IsAuthenticated reports whether a refresh token is on file.
func (s *Syncer) IsAuthenticated() bool {
	return s.creds.IsAuthenticated()
}

// BeginAuth starts a PKCE authorization attempt, returning the URL the
// user should visit and the verifier CompleteAuth needs to finish it.
func (s *Syncer) BeginAuth() (authURL string, pkce PKCE, err error) {
	pkce, err = GeneratePKCE()
	if err != nil {
		return "", PKCE{}, err
	}
	return BuildAuthURL(s.cfg.AppKey, pkce), pkce, nil
}

// CompleteAuth exchanges an authorization code for tokens and persists
// the refresh token.
func (s *Syncer) CompleteAuth(ctx context.Context, code string, pkce PKCE) error {
	tok, err := ExchangeCode(ctx, s.cfg.AppKey, code, pkce)
	if err != nil {
		return err
	}
	s.creds.RefreshToken = tok.RefreshToken
	return s.creds.Save()
}

// Logout discards the stored refresh token.
func (s *Syncer) Logout() error {
	s.creds.ClearAuth()
	return s.creds.Save()
}

func (s *Syncer) client(ctx context.Context) (*Client, error) {
	if !s.creds.IsAuthenticated() {
		return nil, grerrors.New(grerrors.ErrCodeSyncNotLinked, "not authenticated with Dropbox: run `grans dropbox init`", nil)
	}
	tok, err := RefreshAccessToken(ctx, s.cfg.AppKey, s.creds.RefreshToken)
	if err != nil {
		return nil, err
	}
	return NewClient(tok.AccessToken), nil
}

// PushResult summarizes a completed push.
type PushResult struct {
	BytesUploaded int64
	RemotePath    string
}

// Push uploads the local database (and a metadata sidecar) to Dropbox.
// Refuses when the remote copy is newer than the local file unless
// force is set.
func (s *Syncer) Push(ctx context.Context, dbPath string, force bool) (*PushResult, error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		return nil, grerrors.StoreIOError("local database not found", err)
	}

	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	remoteDB := s.remotePath(remoteDBName)
	if !force {
		remoteMeta, err := client.GetMetadata(ctx, remoteDB)
		if err != nil {
			return nil, err
		}
		if remoteMeta != nil {
			if remoteMtime, ok := remoteMeta.ModifiedTime(); ok && remoteMtime.After(info.ModTime()) {
				return nil, grerrors.New(grerrors.ErrCodeSyncConflict,
					"remote database is newer than the local copy; re-run with --force to overwrite it", nil)
			}
		}
	}

	content, err := os.ReadFile(dbPath)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to read local database", err)
	}
	if _, err := client.Upload(ctx, remoteDB, content); err != nil {
		return nil, err
	}

	metadata, err := BuildMetadata(s.st)
	if err != nil {
		return nil, err
	}
	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, grerrors.InternalError("failed to encode sync metadata", err)
	}
	if _, err := client.Upload(ctx, s.remotePath(remoteMetadataName), metaJSON); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Unix()
	s.creds.LastPushTime = &now
	if err := s.creds.Save(); err != nil {
		return nil, err
	}

	return &PushResult{BytesUploaded: int64(len(content)), RemotePath: remoteDB}, nil
}

// PullResult summarizes a completed pull.
type PullResult struct {
	BytesDownloaded int64
}

// Pull downloads the remote database over the local file. Refuses when
// the local copy is newer than the remote file unless force is set.
func (s *Syncer) Pull(ctx context.Context, dbPath string, force bool) (*PullResult, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	remoteDB := s.remotePath(remoteDBName)
	remoteMeta, err := client.GetMetadata(ctx, remoteDB)
	if err != nil {
		return nil, err
	}
	if remoteMeta == nil {
		return nil, grerrors.NotFoundError("no database found on Dropbox")
	}

	if !force {
		if info, statErr := os.Stat(dbPath); statErr == nil {
			if remoteMtime, ok := remoteMeta.ModifiedTime(); ok && info.ModTime().After(remoteMtime) {
				return nil, grerrors.New(grerrors.ErrCodeSyncConflict,
					"local database is newer than the remote copy; re-run with --force to overwrite it", nil)
			}
		}
	}

	content, err := client.Download(ctx, remoteDB)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(path.Dir(dbPath), 0o755); err != nil {
		return nil, grerrors.StoreIOError("failed to create database directory", err)
	}
	tmpPath := dbPath + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o644); err != nil {
		return nil, grerrors.StoreIOError("failed to write downloaded database", err)
	}
	if err := os.Rename(tmpPath, dbPath); err != nil {
		return nil, grerrors.StoreIOError("failed to replace local database", err)
	}

	now := time.Now().UTC().Unix()
	s.creds.LastPullTime = &now
	if err := s.creds.Save(); err != nil {
		return nil, err
	}

	return &PullResult{BytesDownloaded: int64(len(content))}, nil
}

// FileInfo describes one side (local or remote) of the database file for
// status reporting.
type FileInfo struct {
	Exists       bool
	SizeBytes    int64
	ModifiedTime *time.Time
}

// Status reports local vs. remote state for `dropbox status`.
type Status struct {
	Authenticated bool
	LastPushTime  *int64
	LastPullTime  *int64
	LocalMeta     *SyncMetadata
	RemoteMeta    *SyncMetadata
	LocalDB       FileInfo
	RemoteDB      FileInfo
}

// Status compares the local archive against whatever is currently on
// Dropbox, without downloading the remote database itself.
func (s *Syncer) Status(ctx context.Context, dbPath string) (*Status, error) {
	result := &Status{
		Authenticated: s.creds.IsAuthenticated(),
		LastPushTime:  s.creds.LastPushTime,
		LastPullTime:  s.creds.LastPullTime,
	}

	if info, err := os.Stat(dbPath); err == nil {
		mtime := info.ModTime()
		result.LocalDB = FileInfo{Exists: true, SizeBytes: info.Size(), ModifiedTime: &mtime}
		if localMeta, err := BuildMetadata(s.st); err == nil {
			result.LocalMeta = localMeta
		}
	}

	if !result.Authenticated {
		return result, nil
	}

	client, err := s.client(ctx)
	if err != nil {
		return result, nil
	}

	if remoteMeta, err := client.GetMetadata(ctx, s.remotePath(remoteDBName)); err == nil && remoteMeta != nil {
		mtime, _ := remoteMeta.ModifiedTime()
		result.RemoteDB = FileInfo{Exists: true, SizeBytes: int64(remoteMeta.Size), ModifiedTime: &mtime}
	}

	if raw, err := client.Download(ctx, s.remotePath(remoteMetadataName)); err == nil {
		var remote SyncMetadata
		if json.Unmarshal(raw, &remote) == nil {
			result.RemoteMeta = &remote
		}
	}

	return result, nil
}
