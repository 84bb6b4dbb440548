// Package embed generates and maintains vector embeddings for chunked
// text, and ranks/caches them for search.
package embed

import (
	"context"
	"strconv"
	"time"

	"github.com/grans-cli/grans/internal/chunk"
	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/store"
)

// EmbeddingStats summarizes one EnsureEmbeddings run that actually did
// work. Returned nil when nothing needed embedding.
type EmbeddingStats struct {
	ChunksEmbedded int
	ElapsedSecs    float64
	ChunksPerSec   float64
}

// EnsureEmbeddings brings the embedding store into agreement with what
// the chunker would currently produce, using embedder, and writes the
// resulting vectors. A concurrent run against the same directory is
// prevented by an exclusive file lock.
func EnsureEmbeddings(ctx context.Context, st *store.Store, embedder Embedder, lockDir string, batchSize int) (*EmbeddingStats, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	lock := NewFileLock(lockDir)
	if err := lock.Lock(); err != nil {
		return nil, grerrors.StoreIOError("failed to acquire embedding index lock", err)
	}
	defer func() { _ = lock.Unlock() }()

	// Step 1: a model change invalidates the whole embedding space.
	storedModel, hasModel, err := st.GetEmbeddingMeta(model.EmbeddingMetaModelName)
	if err != nil {
		return nil, err
	}
	if hasModel && storedModel != embedder.ModelName() {
		if err := st.WipeAllChunks(); err != nil {
			return nil, err
		}
	}

	// Steps 2-5: re-chunk and reconcile orphans. chunk.Run already
	// upserts by (source_type, source_id) — invalidating the embedding
	// only when content_hash changed — and deletes orphaned rows, whose
	// embeddings cascade-delete via the foreign key.
	cfg := chunk.DefaultConfig(embedder.MaxLength())
	if _, err := chunk.Run(st, cfg); err != nil {
		return nil, err
	}

	// Step 6: embed whatever is left pending, in batches.
	start := time.Now()
	embedded := 0
	for {
		pending, err := st.ListPendingChunks(batchSize)
		if err != nil {
			return nil, err
		}
		if len(pending) == 0 {
			break
		}

		texts := make([]string, len(pending))
		for i, c := range pending {
			texts[i] = c.Text
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			// A whole-batch failure (e.g. provider unreachable) is
			// logged upstream by the caller; here it aborts this run
			// since no progress can be made without the embedder.
			return nil, grerrors.NetworkError("embedding batch failed", err)
		}

		batchEmbedded := 0
		for i, c := range pending {
			if i >= len(vectors) || vectors[i] == nil {
				continue // per-chunk failure: skipped, the chunk stays pending
			}
			if err := st.UpsertEmbedding(&model.Embedding{ChunkID: c.RowID, Vector: vectors[i]}); err != nil {
				continue
			}
			embedded++
			batchEmbedded++
		}
		if batchEmbedded == 0 {
			// Every chunk in this batch failed; listing pending chunks
			// again would return the same batch, so stop here.
			break
		}
	}

	// Step 7: write current metadata.
	if err := st.SetEmbeddingMeta(model.EmbeddingMetaModelName, embedder.ModelName()); err != nil {
		return nil, err
	}
	if err := st.SetEmbeddingMeta(model.EmbeddingMetaDimension, strconv.Itoa(embedder.Dimension())); err != nil {
		return nil, err
	}
	if err := st.SetEmbeddingMeta(model.EmbeddingMetaMaxLength, strconv.Itoa(embedder.MaxLength())); err != nil {
		return nil, err
	}

	if embedded == 0 {
		return nil, nil
	}

	elapsed := time.Since(start).Seconds()
	stats := &EmbeddingStats{
		ChunksEmbedded: embedded,
		ElapsedSecs:    elapsed,
	}
	if elapsed > 0 {
		stats.ChunksPerSec = float64(embedded) / elapsed
	}
	return stats, nil
}

// ChunkSizeStats summarizes the character-length distribution of stored
// chunks.
type ChunkSizeStats struct {
	Min       int
	Median    int
	P10       int
	P90       int
	P99       int
	Max       int
	OverLimit int // chunks longer than maxChars
	VerySmall int // chunks shorter than minChars
}

// Status is the embedding index's status query: chunk counts by
// lifecycle state plus size statistics and a legacy-metadata warning.
type Status struct {
	Total                  int
	Embedded               int
	Pending                int
	Orphaned               int
	Sizes                  ChunkSizeStats
	LegacyMaxLengthWarning bool
}

// GetStatus computes the embedding index's status query. cfg supplies the
// over-limit/very-small thresholds currently in effect.
func GetStatus(st *store.Store, cfg chunk.Config) (*Status, error) {
	total, embedded, pending, err := st.CountChunks()
	if err != nil {
		return nil, err
	}

	lengths, err := st.ChunkTextLengths()
	if err != nil {
		return nil, err
	}

	sizes := ChunkSizeStats{}
	if len(lengths) > 0 {
		sizes.Min = lengths[0]
		sizes.Max = lengths[len(lengths)-1]
		sizes.Median = percentile(lengths, 50)
		sizes.P10 = percentile(lengths, 10)
		sizes.P90 = percentile(lengths, 90)
		sizes.P99 = percentile(lengths, 99)
		for _, n := range lengths {
			if n > cfg.MaxChars {
				sizes.OverLimit++
			}
			if n < cfg.MinChars {
				sizes.VerySmall++
			}
		}
	}

	_, hasModel, err := st.GetEmbeddingMeta(model.EmbeddingMetaModelName)
	if err != nil {
		return nil, err
	}
	_, hasMaxLength, err := st.GetEmbeddingMeta(model.EmbeddingMetaMaxLength)
	if err != nil {
		return nil, err
	}

	return &Status{
		Total:                  total,
		Embedded:               embedded,
		Pending:                pending,
		Orphaned:               0, // chunk.Run reconciles orphans inline; none persist between runs
		Sizes:                  sizes,
		LegacyMaxLengthWarning: hasModel && !hasMaxLength,
	}, nil
}

// percentile returns the nearest-rank percentile p (0-100) of a
// pre-sorted (ascending) slice.
func percentile(sorted []int, p float64) int {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(float64(len(sorted)-1)*p/100 + 0.5)
	if rank < 0 {
		rank = 0
	}
	if rank > len(sorted)-1 {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

