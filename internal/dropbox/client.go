package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	grerrors "github.com/grans-cli/grans/internal/errors"
)

// These are vars, not consts, so tests can point them at an httptest
// server instead of the real Dropbox API.
var (
	uploadURL   = "https://content.dropboxapi.com/2/files/upload"
	downloadURL = "https://content.dropboxapi.com/2/files/download"
	metadataURL = "https://api.dropboxapi.com/2/files/get_metadata"
)

// FileMetadata describes a file as reported by the Dropbox API.
type FileMetadata struct {
	Name           string `json:"name"`
	PathDisplay    string `json:"path_display"`
	Size           uint64 `json:"size"`
	ServerModified string `json:"server_modified"`
}

// ModifiedTime parses ServerModified ("2025-01-27T10:30:00Z") into a Time.
func (m FileMetadata) ModifiedTime() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, m.ServerModified)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type dropboxError struct {
	ErrorSummary string `json:"error_summary"`
}

// Client talks to the Dropbox content and metadata APIs with a bearer
// access token obtained via the PKCE refresh flow.
type Client struct {
	accessToken string
	httpClient  *http.Client
}

// NewClient builds a Client authorized with a short-lived access token.
func NewClient(accessToken string) *Client {
	return &Client{accessToken: accessToken, httpClient: &http.Client{Timeout: 2 * time.Minute}}
}

// Upload writes content to dropboxPath (e.g. "/grans.db"), overwriting
// whatever is already there.
func (c *Client) Upload(ctx context.Context, dropboxPath string, content []byte) (*FileMetadata, error) {
	arg, err := json.Marshal(struct {
		Path       string `json:"path"`
		Mode       string `json:"mode"`
		Autorename bool   `json:"autorename"`
		Mute       bool   `json:"mute"`
	}{Path: dropboxPath, Mode: "overwrite", Autorename: false, Mute: true})
	if err != nil {
		return nil, grerrors.InternalError("failed to build upload argument", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(content))
	if err != nil {
		return nil, grerrors.InternalError("failed to build upload request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Dropbox-API-Arg", string(arg))
	req.Header.Set("Content-Type", "application/octet-stream")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, parseDropboxError(status, body)
	}

	var meta FileMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, grerrors.DeserializationError("failed to parse upload response", err)
	}
	return &meta, nil
}

// Download returns the raw bytes of dropboxPath.
func (c *Client) Download(ctx context.Context, dropboxPath string) ([]byte, error) {
	arg, err := json.Marshal(struct {
		Path string `json:"path"`
	}{Path: dropboxPath})
	if err != nil {
		return nil, grerrors.InternalError("failed to build download argument", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, downloadURL, nil)
	if err != nil {
		return nil, grerrors.InternalError("failed to build download request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Dropbox-API-Arg", string(arg))

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, parseDropboxError(status, body)
	}
	return body, nil
}

// GetMetadata returns file metadata, or (nil, nil) if the file doesn't
// exist remotely.
func (c *Client) GetMetadata(ctx context.Context, dropboxPath string) (*FileMetadata, error) {
	payload, err := json.Marshal(struct {
		Path string `json:"path"`
	}{Path: dropboxPath})
	if err != nil {
		return nil, grerrors.InternalError("failed to build metadata argument", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, metadataURL, bytes.NewReader(payload))
	if err != nil {
		return nil, grerrors.InternalError("failed to build metadata request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if status == http.StatusConflict && strings.Contains(string(body), "not_found") {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, parseDropboxError(status, body)
	}

	var meta FileMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, grerrors.DeserializationError("failed to parse metadata response", err)
	}
	return &meta, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, grerrors.NetworkError("request to Dropbox failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, grerrors.NetworkError("failed to read Dropbox response", err)
	}
	return body, resp.StatusCode, nil
}

func parseDropboxError(status int, body []byte) error {
	var de dropboxError
	if err := json.Unmarshal(body, &de); err == nil && de.ErrorSummary != "" {
		return grerrors.New(grerrors.ErrCodeSyncUpload, fmt.Sprintf("Dropbox API error: %s", de.ErrorSummary), nil)
	}
	return grerrors.New(grerrors.ErrCodeSyncUpload, fmt.Sprintf("Dropbox API returned HTTP %d: %s", status, body), nil)
}
