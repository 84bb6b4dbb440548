package embed

import (
	"context"
	"testing"
	"time"

	"github.com/grans-cli/grans/internal/chunk"
	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedDocument(t *testing.T, st *store.Store, id, notes string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{
		ID:         id,
		Title:      "doc " + id,
		CreatedAt:  now,
		UpdatedAt:  now,
		NotesPlain: notes,
	}))
}

// ============================================================================
// TS01: EnsureEmbeddings Embeds Pending Chunks
// ============================================================================

func TestEnsureEmbeddings_EmbedsPendingChunks(t *testing.T) {
	st := openTestStore(t)
	seedDocument(t, st, "doc-1", "Paragraph one has enough words to survive the minimum chunk size threshold.\n\nParagraph two also clears the same bar comfortably.")

	embedder := NewMockEmbedder(16)
	stats, err := EnsureEmbeddings(context.Background(), st, embedder, t.TempDir(), 0)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Positive(t, stats.ChunksEmbedded)

	total, embedded, pending, err := st.CountChunks()
	require.NoError(t, err)
	assert.Equal(t, total, embedded)
	assert.Zero(t, pending)
}

// ============================================================================
// TS02: Re-Running With No Changes Embeds Nothing New
// ============================================================================

func TestEnsureEmbeddings_NoChanges_ReturnsNilStats(t *testing.T) {
	st := openTestStore(t)
	seedDocument(t, st, "doc-1", "Stable paragraph text that does not change between runs at all.")

	embedder := NewMockEmbedder(16)
	dir := t.TempDir()
	_, err := EnsureEmbeddings(context.Background(), st, embedder, dir, 0)
	require.NoError(t, err)

	stats, err := EnsureEmbeddings(context.Background(), st, embedder, dir, 0)
	require.NoError(t, err)
	assert.Nil(t, stats, "no pending chunks means no work done")
}

// ============================================================================
// TS03: Model Change Wipes And Re-Embeds
// ============================================================================

func TestEnsureEmbeddings_ModelChange_WipesAndReembeds(t *testing.T) {
	st := openTestStore(t)
	seedDocument(t, st, "doc-1", "This paragraph is long enough to produce a chunk worth embedding here.")

	dir := t.TempDir()
	first := NewMockEmbedder(16)
	first.model = "model-a"
	_, err := EnsureEmbeddings(context.Background(), st, first, dir, 0)
	require.NoError(t, err)

	storedModel, ok, err := st.GetEmbeddingMeta(model.EmbeddingMetaModelName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "model-a", storedModel)

	second := NewMockEmbedder(32)
	second.model = "model-b"
	stats, err := EnsureEmbeddings(context.Background(), st, second, dir, 0)
	require.NoError(t, err)
	require.NotNil(t, stats)

	storedModel, ok, err = st.GetEmbeddingMeta(model.EmbeddingMetaModelName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "model-b", storedModel)
}

// ============================================================================
// TS04: Orphan Reconciliation Drops Embeddings For Shrunk Sources
// ============================================================================

func TestEnsureEmbeddings_NotesShrunk_OrphanedParagraphsReconciled(t *testing.T) {
	st := openTestStore(t)
	seedDocument(t, st, "doc-1", "First paragraph with plenty of words to clear the minimum size bar.\n\nSecond paragraph also clears the bar by a wide margin indeed.")

	embedder := NewMockEmbedder(16)
	dir := t.TempDir()
	_, err := EnsureEmbeddings(context.Background(), st, embedder, dir, 0)
	require.NoError(t, err)

	totalBefore, _, _, err := st.CountChunks()
	require.NoError(t, err)
	assert.Equal(t, 2, totalBefore)

	doc, err := st.GetDocument("doc-1", false)
	require.NoError(t, err)
	doc.NotesPlain = "Only a single remaining paragraph clears the minimum size bar now."
	require.NoError(t, st.UpsertDocument(doc))

	_, err = EnsureEmbeddings(context.Background(), st, embedder, dir, 0)
	require.NoError(t, err)

	totalAfter, _, _, err := st.CountChunks()
	require.NoError(t, err)
	assert.Equal(t, 1, totalAfter, "the dropped paragraph's chunk is orphaned and deleted")
}

// ============================================================================
// TS05: percentile
// ============================================================================

func TestPercentile_NearestRank(t *testing.T) {
	sorted := []int{10, 20, 30, 40, 50}

	assert.Equal(t, 10, percentile(sorted, 0))
	assert.Equal(t, 30, percentile(sorted, 50))
	assert.Equal(t, 50, percentile(sorted, 100))
}

func TestPercentile_EmptySlice_ReturnsZero(t *testing.T) {
	assert.Equal(t, 0, percentile(nil, 50))
}

// ============================================================================
// TS06: GetStatus
// ============================================================================

func TestGetStatus_ReportsCountsAndSizes(t *testing.T) {
	st := openTestStore(t)
	seedDocument(t, st, "doc-1", "A paragraph long enough to be chunked and then embedded successfully.")

	embedder := NewMockEmbedder(16)
	_, err := EnsureEmbeddings(context.Background(), st, embedder, t.TempDir(), 0)
	require.NoError(t, err)

	status, err := GetStatus(st, chunk.DefaultConfig(embedder.MaxLength()))
	require.NoError(t, err)
	assert.Equal(t, status.Total, status.Embedded)
	assert.Zero(t, status.Pending)
	assert.False(t, status.LegacyMaxLengthWarning)
}

func TestGetStatus_LegacyMetadata_WarnsWhenMaxLengthMissing(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.SetEmbeddingMeta(model.EmbeddingMetaModelName, "legacy-model"))

	status, err := GetStatus(st, chunk.DefaultConfig(2048))
	require.NoError(t, err)
	assert.True(t, status.LegacyMaxLengthWarning)
}
