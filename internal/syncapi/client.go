// Package syncapi pulls documents, people, calendar events, templates,
// recipes, transcripts, and panels from the upstream document API and
// upserts them into the local store.
package syncapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	grerrors "github.com/grans-cli/grans/internal/errors"
)

const clientVersion = "1.0.0"

// Client talks to the upstream document API: two versioned JSON-over-HTTP
// endpoints authenticated with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// NewClient builds a Client against baseURL (e.g. "https://api.granola.ai").
func NewClient(baseURL, token string, timeout time.Duration, maxRetries int) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// apiError classifies a non-2xx response so callers can decide whether to
// retry, stop the run, or record a per-document sync-log entry.
type apiError struct {
	statusCode int
	body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("upstream API returned HTTP %d: %s", e.statusCode, e.body)
}

func isUnauthorized(err error) bool { return statusCode(err) == http.StatusUnauthorized }
func isRateLimited(err error) bool  { return statusCode(err) == http.StatusTooManyRequests }
func isNotFound(err error) bool     { return statusCode(err) == http.StatusNotFound }

func statusCode(err error) int {
	if ae, ok := err.(*apiError); ok {
		return ae.statusCode
	}
	return 0
}

// postV1 and postV2 call the respective upstream API version with a JSON
// body, retrying transient failures with exponential backoff.
func (c *Client) postV1(ctx context.Context, endpoint string, body, out any) error {
	return c.post(ctx, c.baseURL+"/v1/"+endpoint, body, out)
}

func (c *Client) postV2(ctx context.Context, endpoint string, body, out any) error {
	return c.post(ctx, c.baseURL+"/v2/"+endpoint, body, out)
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	operation := func() error {
		err := c.doPost(ctx, url, body, out)
		if err == nil {
			return nil
		}
		if isUnauthorized(err) || isRateLimited(err) || isNotFound(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries))
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if pe, ok := err.(*backoff.PermanentError); ok {
			return pe.Err
		}
		return err
	}
	return nil
}

func (c *Client) doPost(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return grerrors.InternalError("failed to marshal request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return grerrors.InternalError("failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Version", clientVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return grerrors.NetworkError("request to upstream API failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return grerrors.NetworkError("failed to read upstream response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &apiError{statusCode: resp.StatusCode, body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return grerrors.DeserializationError("failed to parse upstream response", err)
	}
	return nil
}

// sleepWithJitter blocks for base plus a uniform random jitter in
// [0, jitterMax), honoring context cancellation.
func sleepWithJitter(ctx context.Context, base, jitterMax time.Duration) {
	delay := base
	if jitterMax > 0 {
		delay += time.Duration(rand.Int63n(int64(jitterMax)))
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
