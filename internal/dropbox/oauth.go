package dropbox

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/oauth2"

	grerrors "github.com/grans-cli/grans/internal/errors"
)

// authorizeURL and tokenURL are vars, not consts, so tests can point them
// at an httptest server instead of the real Dropbox API.
var (
	authorizeURL = "https://www.dropbox.com/oauth2/authorize"
	tokenURL     = "https://api.dropboxapi.com/oauth2/token"
)

// PKCE holds a verifier/challenge pair for RFC 7636 authorization,
// generated fresh for every `dropbox init` attempt.
type PKCE struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE produces a 64-byte random verifier and its S256 challenge,
// both base64url-encoded without padding.
func GeneratePKCE() (PKCE, error) {
	raw := make([]byte, 64)
	if _, err := rand.Read(raw); err != nil {
		return PKCE{}, grerrors.InternalError("failed to generate PKCE verifier", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)

	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	return PKCE{Verifier: verifier, Challenge: challenge}, nil
}

// oauthConfig builds the oauth2.Config for the Dropbox PKCE flow. Dropbox
// doesn't use a client secret with PKCE, so ClientSecret is left empty.
func oauthConfig(appKey string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: appKey,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authorizeURL,
			TokenURL: tokenURL,
		},
	}
}

// BuildAuthURL returns the URL the user visits to authorize grans,
// requesting an offline (refreshable) token via PKCE S256.
func BuildAuthURL(appKey string, pkce PKCE) string {
	cfg := oauthConfig(appKey)
	return cfg.AuthCodeURL("",
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("token_access_type", "offline"),
	)
}

// ExchangeCode trades an authorization code and its PKCE verifier for an
// access/refresh token pair.
func ExchangeCode(ctx context.Context, appKey, code string, pkce PKCE) (*oauth2.Token, error) {
	cfg := oauthConfig(appKey)
	tok, err := cfg.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", pkce.Verifier))
	if err != nil {
		return nil, grerrors.UnauthenticatedError("failed to exchange authorization code", err)
	}
	return tok, nil
}

// RefreshAccessToken uses a stored refresh token to obtain a fresh short-
// lived access token without re-prompting the user.
func RefreshAccessToken(ctx context.Context, appKey, refreshToken string) (*oauth2.Token, error) {
	cfg := oauthConfig(appKey)
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, grerrors.UnauthenticatedError("failed to refresh Dropbox access token", err)
	}
	return tok, nil
}
