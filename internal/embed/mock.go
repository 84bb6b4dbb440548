package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// MockEmbedder generates deterministic, normalized vectors from the hash
// of its input text, with no external process required. Used by the CLI's
// config.EmbeddingsConfig.Provider == "mock" setting and by tests that
// exercise the embedding index without a live Ollama.
type MockEmbedder struct {
	dimension int
	maxLength int
	model     string
}

var _ Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a deterministic embedder with the given
// dimension. dimension <= 0 falls back to DefaultDimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &MockEmbedder{
		dimension: dimension,
		maxLength: DefaultMaxLength,
		model:     "mock",
	}
}

// EmbedQuery deterministically derives a unit vector from text.
func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.vectorFor(text), nil
}

// EmbedBatch embeds each text independently via EmbedQuery's derivation.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *MockEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, m.dimension)
	seed := sha256.Sum256([]byte(text))
	// Expand the 32-byte hash into dimension float32 components by
	// rehashing the previous block whenever it runs out, so arbitrary
	// dimensions are supported.
	block := seed
	idx := 0
	for i := 0; i < m.dimension; i++ {
		if idx+4 > len(block) {
			block = sha256.Sum256(block[:])
			idx = 0
		}
		bits := binary.LittleEndian.Uint32(block[idx:])
		v[i] = float32(bits%20001)/10000.0 - 1.0 // map to roughly [-1, 1]
		idx += 4
	}
	return normalizeVector(v)
}

// Dimension returns the configured vector length.
func (m *MockEmbedder) Dimension() int { return m.dimension }

// ModelName identifies this embedder for embedding_metadata consistency
// checks.
func (m *MockEmbedder) ModelName() string { return m.model }

// MaxLength returns a generous fixed token budget.
func (m *MockEmbedder) MaxLength() int { return m.maxLength }

// Available always reports true: there is nothing external to reach.
func (m *MockEmbedder) Available(ctx context.Context) bool { return true }

// Close is a no-op.
func (m *MockEmbedder) Close() error { return nil }
