package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grans-cli/grans/internal/platform"
)

// Config represents the complete grans configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Dates      DatesConfig      `yaml:"dates" json:"dates"`
	SyncAPI    SyncAPIConfig    `yaml:"sync_api" json:"sync_api"`
	Dropbox    DropboxConfig    `yaml:"dropbox" json:"dropbox"`
}

// StoreConfig configures where the local archive database lives.
type StoreConfig struct {
	// Path is the path to the SQLite database file. Empty means the
	// platform default (<data-dir>/grans.db).
	Path string `yaml:"path" json:"path"`
}

// ChunkingConfig holds chunker settings. They are loaded and merged with
// the rest of the file, but the chunker derives its budgets from
// chunk.DefaultConfig and does not read these values.
type ChunkingConfig struct {
	// CharsPerToken approximates tokens from character counts when the
	// embedder doesn't report a tokenizer (default: 4.0).
	CharsPerToken float64 `yaml:"chars_per_token" json:"chars_per_token"`
	// TargetRatio and OverlapRatio scale the chunk target/overlap size
	// relative to the embedder's max input length.
	TargetRatio  float64 `yaml:"target_ratio" json:"target_ratio"`
	OverlapRatio float64 `yaml:"overlap_ratio" json:"overlap_ratio"`
	// MinChars is the minimum chunk size in characters; a shorter chunk
	// is dropped.
	MinChars int `yaml:"min_chars" json:"min_chars"`
}

// EmbeddingsConfig configures the embedding provider used to build the
// semantic index.
type EmbeddingsConfig struct {
	// Provider selects the embedder backend: "ollama" (default) or "mock"
	// (deterministic, for tests and offline development).
	Provider string `yaml:"provider" json:"provider"`
	// Model is the embedding model name passed to the provider.
	Model string `yaml:"model" json:"model"`
	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// BatchSize is the number of chunks embedded per request.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// QueryCacheSize is the number of recent query embeddings cached in
	// memory (LRU, keyed by text+model hash).
	QueryCacheSize int `yaml:"query_cache_size" json:"query_cache_size"`
	// RequestTimeout bounds a single embedding request.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// SearchConfig holds search defaults. They are loaded, merged and
// validated here, but no command reads them.
type SearchConfig struct {
	// DefaultMode is used when a search command doesn't specify one
	// explicitly: "keyword", "contextual", or "semantic".
	DefaultMode string `yaml:"default_mode" json:"default_mode"`
	// DefaultLimit is the number of results returned when not overridden.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	// ContextWindow is the number of characters of surrounding context
	// shown around a keyword match.
	ContextWindow int `yaml:"context_window" json:"context_window"`
}

// DatesConfig configures the date resolver.
type DatesConfig struct {
	// Timezone is the IANA timezone name used to resolve relative dates
	// ("today", "last-week"). Empty means the local system timezone.
	Timezone string `yaml:"timezone" json:"timezone"`
	// WeekStart is the first day of the week for "this week"/"last week"
	// boundaries: "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`
}

// SyncAPIConfig configures syncing against the upstream document API.
type SyncAPIConfig struct {
	// BaseURL is the upstream API base URL.
	BaseURL string `yaml:"base_url" json:"base_url"`
	// RequestDelay is a pacing delay between consecutive requests to the
	// upstream API. It is loaded and merged here; no sync code reads it.
	RequestDelay time.Duration `yaml:"request_delay" json:"request_delay"`
	// RequestJitter is a random jitter on top of RequestDelay. It is
	// loaded and merged here; no sync code reads it.
	RequestJitter time.Duration `yaml:"request_jitter" json:"request_jitter"`
	// HTTPTimeout bounds a single upstream HTTP request.
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout"`
	// MaxConcurrentPulls bounds how many independent entity kinds
	// (documents, people, calendars, templates, recipes) sync at once.
	MaxConcurrentPulls int `yaml:"max_concurrent_pulls" json:"max_concurrent_pulls"`
	// MaxRetries is the number of retry attempts for transient upstream
	// failures (timeouts, 5xx); 401/404/429 are never retried here.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// DropboxConfig configures the Dropbox-backed remote sync protocol.
type DropboxConfig struct {
	// AppKey is the Dropbox OAuth app key used for the PKCE flow. It is
	// not a secret: PKCE doesn't require a client secret.
	AppKey string `yaml:"app_key" json:"app_key"`
	// RemoteFolder is the path within the user's Dropbox app folder
	// where the archive snapshot is stored.
	RemoteFolder string `yaml:"remote_folder" json:"remote_folder"`
}

// defaultDropboxAppKey is grans' registered Dropbox app key. It is safe to
// commit: PKCE authorization doesn't use a client secret, only this
// public identifier. Users pointing at their own Dropbox app can override
// it via dropbox.app_key.
const defaultDropboxAppKey = "grans-cli-local-sync"

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Store:   StoreConfig{Path: ""},
		Chunking: ChunkingConfig{
			CharsPerToken: 4.0,
			TargetRatio:   0.68,
			OverlapRatio:  0.20,
			MinChars:      50,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "ollama",
			Model:          "nomic-embed-text",
			OllamaHost:     "",
			BatchSize:      16,
			QueryCacheSize: 256,
			RequestTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			DefaultMode:   "keyword",
			DefaultLimit:  20,
			ContextWindow: 200,
		},
		Dates: DatesConfig{
			Timezone:  "",
			WeekStart: "monday",
		},
		SyncAPI: SyncAPIConfig{
			BaseURL:            "https://api.granola.ai",
			RequestDelay:       250 * time.Millisecond,
			RequestJitter:      100 * time.Millisecond,
			HTTPTimeout:        30 * time.Second,
			MaxConcurrentPulls: 4,
			MaxRetries:         3,
		},
		Dropbox: DropboxConfig{
			AppKey:       defaultDropboxAppKey,
			RemoteFolder: "/grans-archive",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
// <data-dir>/config.yaml.
func GetUserConfigPath() string {
	dir, err := platform.DataDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "grans", "config.yaml")
	}
	return filepath.Join(dir, "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (<data-dir>/config.yaml)
//  3. Environment variables (GRANS_*)
func Load() (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	if other.Chunking.CharsPerToken != 0 {
		c.Chunking.CharsPerToken = other.Chunking.CharsPerToken
	}
	if other.Chunking.TargetRatio != 0 {
		c.Chunking.TargetRatio = other.Chunking.TargetRatio
	}
	if other.Chunking.OverlapRatio != 0 {
		c.Chunking.OverlapRatio = other.Chunking.OverlapRatio
	}
	if other.Chunking.MinChars != 0 {
		c.Chunking.MinChars = other.Chunking.MinChars
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.QueryCacheSize != 0 {
		c.Embeddings.QueryCacheSize = other.Embeddings.QueryCacheSize
	}
	if other.Embeddings.RequestTimeout != 0 {
		c.Embeddings.RequestTimeout = other.Embeddings.RequestTimeout
	}

	if other.Search.DefaultMode != "" {
		c.Search.DefaultMode = other.Search.DefaultMode
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.ContextWindow != 0 {
		c.Search.ContextWindow = other.Search.ContextWindow
	}

	if other.Dates.Timezone != "" {
		c.Dates.Timezone = other.Dates.Timezone
	}
	if other.Dates.WeekStart != "" {
		c.Dates.WeekStart = other.Dates.WeekStart
	}

	if other.SyncAPI.BaseURL != "" {
		c.SyncAPI.BaseURL = other.SyncAPI.BaseURL
	}
	if other.SyncAPI.RequestDelay != 0 {
		c.SyncAPI.RequestDelay = other.SyncAPI.RequestDelay
	}
	if other.SyncAPI.RequestJitter != 0 {
		c.SyncAPI.RequestJitter = other.SyncAPI.RequestJitter
	}
	if other.SyncAPI.HTTPTimeout != 0 {
		c.SyncAPI.HTTPTimeout = other.SyncAPI.HTTPTimeout
	}
	if other.SyncAPI.MaxConcurrentPulls != 0 {
		c.SyncAPI.MaxConcurrentPulls = other.SyncAPI.MaxConcurrentPulls
	}
	if other.SyncAPI.MaxRetries != 0 {
		c.SyncAPI.MaxRetries = other.SyncAPI.MaxRetries
	}

	if other.Dropbox.AppKey != "" {
		c.Dropbox.AppKey = other.Dropbox.AppKey
	}
	if other.Dropbox.RemoteFolder != "" {
		c.Dropbox.RemoteFolder = other.Dropbox.RemoteFolder
	}
}

// applyEnvOverrides applies GRANS_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GRANS_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("GRANS_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("GRANS_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("GRANS_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("GRANS_SEARCH_DEFAULT_MODE"); v != "" {
		c.Search.DefaultMode = v
	}
	if v := os.Getenv("GRANS_DATES_TIMEZONE"); v != "" {
		c.Dates.Timezone = v
	}
	if v := os.Getenv("GRANS_SYNC_BASE_URL"); v != "" {
		c.SyncAPI.BaseURL = v
	}
	if v := os.Getenv("GRANS_SYNC_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.SyncAPI.MaxRetries = n
		}
	}
	if v := os.Getenv("GRANS_DROPBOX_APP_KEY"); v != "" {
		c.Dropbox.AppKey = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Chunking.TargetRatio <= 0 || c.Chunking.TargetRatio > 1 {
		return fmt.Errorf("chunking.target_ratio must be in (0, 1], got %f", c.Chunking.TargetRatio)
	}
	if c.Chunking.OverlapRatio < 0 || c.Chunking.OverlapRatio >= c.Chunking.TargetRatio {
		return fmt.Errorf("chunking.overlap_ratio must be in [0, target_ratio), got %f", c.Chunking.OverlapRatio)
	}
	if c.Chunking.CharsPerToken <= 0 {
		return fmt.Errorf("chunking.chars_per_token must be positive, got %f", c.Chunking.CharsPerToken)
	}

	validProviders := map[string]bool{"ollama": true, "mock": true}
	if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
		return fmt.Errorf("embeddings.provider must be 'ollama' or 'mock', got %s", c.Embeddings.Provider)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	validModes := map[string]bool{"keyword": true, "contextual": true, "semantic": true}
	if !validModes[strings.ToLower(c.Search.DefaultMode)] {
		return fmt.Errorf("search.default_mode must be 'keyword', 'contextual', or 'semantic', got %s", c.Search.DefaultMode)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}

	validWeekStarts := map[string]bool{"monday": true, "sunday": true}
	if !validWeekStarts[strings.ToLower(c.Dates.WeekStart)] {
		return fmt.Errorf("dates.week_start must be 'monday' or 'sunday', got %s", c.Dates.WeekStart)
	}

	if c.SyncAPI.MaxConcurrentPulls <= 0 {
		return fmt.Errorf("sync_api.max_concurrent_pulls must be positive, got %d", c.SyncAPI.MaxConcurrentPulls)
	}
	if c.SyncAPI.MaxRetries < 0 {
		return fmt.Errorf("sync_api.max_retries must be non-negative, got %d", c.SyncAPI.MaxRetries)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// EffectiveStorePath resolves the configured store path, falling back to
// the platform default when unset.
func (c *Config) EffectiveStorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	return platform.DefaultStorePath()
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
