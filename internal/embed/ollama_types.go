package embed

import "time"

// Ollama API constants.
const (
	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the recommended embedding model for meeting
	// transcripts and notes: general prose, not code, so a text-tuned
	// model is preferred over a code-retrieval one.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultOllamaMaxLength is nomic-embed-text's context window in
	// tokens, used when OllamaConfig.MaxLength is zero. The model's own
	// context window is not queried.
	DefaultOllamaMaxLength = 8192

	// OllamaConnectTimeout bounds the initial health check.
	OllamaConnectTimeout = 5 * time.Second

	// OllamaPoolSize is the HTTP connection pool size.
	OllamaPoolSize = 4
)

// FallbackOllamaModels are tried in order if the primary model isn't
// installed locally.
var FallbackOllamaModels = []string{
	"mxbai-embed-large",
	"all-minilm",
}

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string

	// Model is the embedding model to use.
	Model string

	// FallbackModels are tried in order if the primary model is unavailable.
	FallbackModels []string

	// Dimension overrides auto-detection when non-zero.
	Dimension int

	// MaxLength is the model's context window in tokens; zero means
	// DefaultOllamaMaxLength.
	MaxLength int

	// BatchSize bounds how many texts are sent per /api/embed call.
	BatchSize int

	// Timeout bounds a single API request.
	Timeout time.Duration

	// ConnectTimeout bounds the initial health check.
	ConnectTimeout time.Duration

	// MaxRetries is the total number of attempts per request, the first
	// one included, before a transient failure is returned.
	MaxRetries int

	// PoolSize is the HTTP connection pool size.
	PoolSize int

	// SkipHealthCheck skips the initial Ollama availability check, for tests.
	SkipHealthCheck bool

	// ProgressFunc is called after each batch with (completed, total) counts,
	// letting callers display progress while embedding a corpus.
	ProgressFunc func(completed, total int)
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:           DefaultOllamaHost,
		Model:          DefaultOllamaModel,
		FallbackModels: FallbackOllamaModels,
		Dimension:      0, // auto-detect
		MaxLength:      DefaultOllamaMaxLength,
		BatchSize:      DefaultBatchSize,
		Timeout:        DefaultRequestTimeout,
		ConnectTimeout: OllamaConnectTimeout,
		MaxRetries:     DefaultMaxRetries,
		PoolSize:       OllamaPoolSize,
	}
}

// OllamaEmbedRequest is the Ollama /api/embed request.
type OllamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"` // string or []string for batch
}

// OllamaEmbedResponse is the Ollama /api/embed response.
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaModelListResponse is the Ollama /api/tags response.
type OllamaModelListResponse struct {
	Models []OllamaModelInfo `json:"models"`
}

// OllamaModelInfo describes an installed model.
type OllamaModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}
