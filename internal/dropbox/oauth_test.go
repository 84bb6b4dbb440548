package dropbox

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TS01: PKCE Generation
// ============================================================================

func TestGeneratePKCE_ProducesCorrectLengths(t *testing.T) {
	pkce, err := GeneratePKCE()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(pkce.Verifier)
	require.NoError(t, err)
	assert.Len(t, raw, 64)

	challengeBytes, err := base64.RawURLEncoding.DecodeString(pkce.Challenge)
	require.NoError(t, err)
	assert.Len(t, challengeBytes, 32)
}

func TestGeneratePKCE_Unique(t *testing.T) {
	first, err := GeneratePKCE()
	require.NoError(t, err)
	second, err := GeneratePKCE()
	require.NoError(t, err)

	assert.NotEqual(t, first.Verifier, second.Verifier)
	assert.NotEqual(t, first.Challenge, second.Challenge)
}

func TestBuildAuthURL_IncludesPKCEParams(t *testing.T) {
	pkce, err := GeneratePKCE()
	require.NoError(t, err)

	url := BuildAuthURL("my-app-key", pkce)
	assert.Contains(t, url, "client_id=my-app-key")
	assert.Contains(t, url, "response_type=code")
	assert.Contains(t, url, "code_challenge_method=S256")
	assert.Contains(t, url, "token_access_type=offline")
}

// ============================================================================
// TS02: Token Exchange / Refresh
// ============================================================================

func withFakeTokenServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prevToken := tokenURL
	tokenURL = srv.URL
	t.Cleanup(func() { tokenURL = prevToken })
}

func TestExchangeCode_ReturnsTokens(t *testing.T) {
	withFakeTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "auth-code", r.Form.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","expires_in":3600}`))
	})

	pkce, err := GeneratePKCE()
	require.NoError(t, err)

	tok, err := ExchangeCode(t.Context(), "app-key", "auth-code", pkce)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
}

func TestRefreshAccessToken_ReturnsFreshAccessToken(t *testing.T) {
	withFakeTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "stored-refresh", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-2","token_type":"bearer","expires_in":3600}`))
	})

	tok, err := RefreshAccessToken(t.Context(), "app-key", "stored-refresh")
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)
}

func TestRefreshAccessToken_ErrorResponse_ReturnsError(t *testing.T) {
	withFakeTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	_, err := RefreshAccessToken(t.Context(), "app-key", "bad-refresh")
	assert.Error(t, err)
}
