package cmd

import (
	"context"
	"strings"

	"github.com/grans-cli/grans/internal/config"
	"github.com/grans-cli/grans/internal/embed"
	grerr "github.com/grans-cli/grans/internal/errors"
)

// buildEmbedder constructs the embedder configured for semantic search and
// indexing, wrapped in an LRU query cache. "mock" is deterministic and
// offline, for environments without Ollama running.
func buildEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) (embed.Embedder, error) {
	var inner embed.Embedder
	switch strings.ToLower(cfg.Provider) {
	case "mock":
		inner = embed.NewMockEmbedder(256)
	case "ollama", "":
		occfg := embed.DefaultOllamaConfig()
		if cfg.Model != "" {
			occfg.Model = cfg.Model
		}
		if cfg.OllamaHost != "" {
			occfg.Host = cfg.OllamaHost
		}
		if cfg.BatchSize > 0 {
			occfg.BatchSize = cfg.BatchSize
		}
		if cfg.RequestTimeout > 0 {
			occfg.Timeout = cfg.RequestTimeout
		}
		o, err := embed.NewOllamaEmbedder(ctx, occfg)
		if err != nil {
			return nil, err
		}
		inner = o
	default:
		return nil, grerr.ConfigError("embeddings.provider must be 'ollama' or 'mock', got "+cfg.Provider, nil)
	}

	cacheSize := cfg.QueryCacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	return embed.NewCachedEmbedder(inner, cacheSize), nil
}
