package embed

import (
	"context"
	"math"
	"time"
)

// Batch and timeout defaults shared across Embedder implementations.
const (
	MinBatchSize     = 1
	MaxBatchSize     = 256
	DefaultBatchSize = 16 // matches the embedding index's configured batch size (spec §4.4 step 6)

	// DefaultRequestTimeout is applied per HTTP call to the embedding
	// provider. A query or batch call that exceeds it is treated as a
	// transient failure and retried, up to OllamaConfig.MaxRetries
	// attempts in total.
	DefaultRequestTimeout = 30 * time.Second

	DefaultMaxRetries = 3
)

// DefaultDimension and DefaultMaxLength are used when an embedder can't
// report its own values (e.g. a provider with no introspection endpoint).
const (
	DefaultDimension = 768
	DefaultMaxLength = 2048
)

// Embedder generates vector embeddings for text. The core never assumes a
// particular model family: it depends only on this interface, matching
// spec's embed_batch/embed_query/dimension/model_name/max_length contract.
type Embedder interface {
	// EmbedBatch embeds each text independently, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string, typically a user's search
	// terms rather than corpus text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension is the length of every vector this embedder returns.
	Dimension() int

	// ModelName identifies the model, used for the model-consistency
	// gate in embedding_metadata.
	ModelName() string

	// MaxLength is the model's input budget in tokens, used to derive
	// the chunker's character budgets.
	MaxLength() int

	// Available reports whether the embedder is currently reachable.
	Available(ctx context.Context) bool

	// Close releases any held resources (HTTP connections, etc).
	Close() error
}

// normalizeVector scales v to unit length. A zero vector is returned
// unchanged rather than dividing by zero.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
