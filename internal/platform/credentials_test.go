package platform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupabaseConfig_InlineObject(t *testing.T) {
	var cfg supabaseConfig
	err := json.Unmarshal([]byte(`{"workos_tokens":{"access_token":"test-token-123"}}`), &cfg)
	require.NoError(t, err)
	require.NotNil(t, cfg.WorkosTokens)
	require.NotNil(t, cfg.WorkosTokens.AccessToken)
	assert.Equal(t, "test-token-123", *cfg.WorkosTokens.AccessToken)
}

func TestSupabaseConfig_Empty(t *testing.T) {
	var cfg supabaseConfig
	err := json.Unmarshal([]byte(`{}`), &cfg)
	require.NoError(t, err)
	assert.Nil(t, cfg.WorkosTokens)
}

func TestSupabaseConfig_ObjectWithoutToken(t *testing.T) {
	var cfg supabaseConfig
	err := json.Unmarshal([]byte(`{"workos_tokens":{}}`), &cfg)
	require.NoError(t, err)
	require.NotNil(t, cfg.WorkosTokens)
	assert.Nil(t, cfg.WorkosTokens.AccessToken)
}

func TestSupabaseConfig_DoubleEncoded(t *testing.T) {
	raw := `{"workos_tokens": "{\"access_token\":\"double-encoded-token\",\"expires_in\":21599}"}`
	var cfg supabaseConfig
	err := json.Unmarshal([]byte(raw), &cfg)
	require.NoError(t, err)
	require.NotNil(t, cfg.WorkosTokens)
	require.NotNil(t, cfg.WorkosTokens.AccessToken)
	assert.Equal(t, "double-encoded-token", *cfg.WorkosTokens.AccessToken)
}

func TestResolveAPIToken_UsesOverride(t *testing.T) {
	token, err := ResolveAPIToken("my-override-token")
	require.NoError(t, err)
	assert.Equal(t, "my-override-token", token)
}

func TestCredentialCandidates_NonEmpty(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	candidates := credentialCandidates()
	assert.NotEmpty(t, candidates)
	for _, c := range candidates {
		assert.Contains(t, c, "supabase.json")
	}
}

func TestCommandExists_KnownAndUnknown(t *testing.T) {
	assert.True(t, commandExists("ls"))
	assert.False(t, commandExists("definitely_not_a_real_command_xyz"))
}
