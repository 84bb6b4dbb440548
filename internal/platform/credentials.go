package platform

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	grerr "github.com/grans-cli/grans/internal/errors"
)

// supabaseConfig mirrors the subset of the upstream desktop app's
// supabase.json this tool cares about.
type supabaseConfig struct {
	WorkosTokens *workosTokens `json:"workos_tokens"`
}

type workosTokens struct {
	AccessToken *string `json:"access_token"`
}

// UnmarshalJSON accepts workos_tokens as either an inline object or a
// double-encoded JSON string, matching what the upstream desktop app
// has shipped across versions.
func (c *supabaseConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		WorkosTokens json.RawMessage `json:"workos_tokens"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.WorkosTokens) == 0 || string(raw.WorkosTokens) == "null" {
		return nil
	}

	var inline workosTokens
	inlineErr := json.Unmarshal(raw.WorkosTokens, &inline)
	if inlineErr == nil && inline.AccessToken != nil {
		c.WorkosTokens = &inline
		return nil
	}

	// Not a well-formed object with an access_token: try it as a
	// double-encoded JSON string.
	var encoded string
	if err := json.Unmarshal(raw.WorkosTokens, &encoded); err != nil {
		if inlineErr == nil {
			c.WorkosTokens = &inline
		}
		return nil
	}
	var nested workosTokens
	if err := json.Unmarshal([]byte(encoded), &nested); err != nil {
		return nil
	}
	c.WorkosTokens = &nested
	return nil
}

// ResolveAPIToken returns the override token if non-empty, otherwise
// discovers the upstream app's access token from its credential file.
func ResolveAPIToken(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return DiscoverAPIToken()
}

// DiscoverAPIToken searches the platform-specific candidate paths for the
// upstream desktop app's supabase.json and extracts its access token.
func DiscoverAPIToken() (string, error) {
	path, err := findCredentialFile(credentialCandidates())
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", grerr.StoreIOError("failed to read credential file "+path, err)
	}

	var cfg supabaseConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", grerr.DeserializationError("failed to parse credential file "+path, err)
	}

	if cfg.WorkosTokens == nil || cfg.WorkosTokens.AccessToken == nil || *cfg.WorkosTokens.AccessToken == "" {
		return "", grerr.New(grerr.ErrCodeCredentialsMissing,
			"no access token found in "+path, nil).
			WithSuggestion("log into the desktop app and try again")
	}

	return *cfg.WorkosTokens.AccessToken, nil
}

func findCredentialFile(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", grerr.New(grerr.ErrCodeCredentialsMissing,
		"could not find desktop app credentials (searched "+strings.Join(candidates, ", ")+")", nil).
		WithSuggestion("install the desktop app and log in, or pass --token explicitly")
}

func credentialCandidates() []string {
	var candidates []string

	if IsWSL() {
		candidates = append(candidates, wslWindowsCredentialCandidates()...)
	}

	if home := homeDir(); home != "" {
		candidates = append(candidates,
			filepath.Join(home, "Library", "Application Support", "Granola", "supabase.json"),
			filepath.Join(home, ".config", "Granola", "supabase.json"),
		)
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			candidates = append(candidates, filepath.Join(xdg, "Granola", "supabase.json"))
		}
	}

	if appdata := os.Getenv("APPDATA"); appdata != "" {
		candidates = append(candidates, filepath.Join(appdata, "Granola", "supabase.json"))
	}

	return candidates
}

func wslWindowsCredentialCandidates() []string {
	username := wslWindowsUsername()
	if username == "" {
		return nil
	}
	return []string{
		"/mnt/c/Users/" + username + "/AppData/Roaming/Granola/supabase.json",
		"/mnt/c/Users/" + username + "/AppData/Local/Granola/supabase.json",
	}
}

func wslWindowsUsername() string {
	out, err := exec.Command("cmd.exe", "/c", "echo %USERNAME%").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" && name != "%USERNAME%" {
			return name
		}
	}
	return os.Getenv("USER")
}

// CopyToClipboard copies text to the system clipboard using a
// platform-appropriate command: pbcopy on macOS, clip.exe on Windows and
// WSL, xclip or xsel on Linux.
func CopyToClipboard(text string) error {
	name, args, err := clipboardCommand()
	if err != nil {
		return err
	}

	cmd := exec.Command(name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return grerr.InternalError("failed to open clipboard command stdin", err)
	}
	if err := cmd.Start(); err != nil {
		return grerr.InternalError("failed to launch clipboard command", err)
	}
	if _, err := stdin.Write([]byte(text)); err != nil {
		_ = stdin.Close()
		return grerr.InternalError("failed to write to clipboard command", err)
	}
	_ = stdin.Close()
	return cmd.Wait()
}

func clipboardCommand() (string, []string, error) {
	switch {
	case runtime.GOOS == "darwin":
		return "pbcopy", nil, nil
	case runtime.GOOS == "windows", IsWSL():
		return "clip.exe", nil, nil
	case runtime.GOOS == "linux":
		if commandExists("xclip") {
			return "xclip", []string{"-selection", "clipboard"}, nil
		}
		if commandExists("xsel") {
			return "xsel", []string{"--clipboard", "--input"}, nil
		}
		return "", nil, grerr.New(grerr.ErrCodeInternal,
			"no clipboard utility found", nil).
			WithSuggestion("install xclip or xsel")
	default:
		return "", nil, grerr.New(grerr.ErrCodeInternal, "clipboard not supported on this platform", nil)
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
