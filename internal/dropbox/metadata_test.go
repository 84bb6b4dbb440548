package dropbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ============================================================================
// TS01: Metadata Extraction
// ============================================================================

func TestBuildMetadata_CountsDocumentsPeopleAndTranscripts(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "Standup", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-2", Title: "Planning", CreatedAt: now.Add(time.Hour), UpdatedAt: now}))
	require.NoError(t, st.ReplaceTranscript("doc-1", []*model.TranscriptUtterance{
		{ID: "u1", DocumentID: "doc-1", Text: "hi", StartTimestamp: now, EndTimestamp: now},
	}))
	require.NoError(t, st.UpsertPerson(&model.Person{ID: "p1", Name: "Alice", Email: "alice@test.com"}))

	meta, err := BuildMetadata(st)
	require.NoError(t, err)
	require.NotNil(t, meta.IndexDB)
	assert.EqualValues(t, 2, meta.IndexDB.DocumentCount)
	assert.EqualValues(t, 1, meta.IndexDB.DocumentsWithTranscripts)
	assert.EqualValues(t, 1, meta.IndexDB.TranscriptUtteranceCount)
	assert.EqualValues(t, 1, meta.IndexDB.PeopleCount)
	require.NotNil(t, meta.IndexDB.EarliestDocument)
	require.NotNil(t, meta.IndexDB.LatestDocument)
}

func TestBuildMetadata_EmptyStore_ZeroCounts(t *testing.T) {
	st := openTestStore(t)

	meta, err := BuildMetadata(st)
	require.NoError(t, err)
	require.NotNil(t, meta.IndexDB)
	assert.EqualValues(t, 0, meta.IndexDB.DocumentCount)
	assert.Nil(t, meta.IndexDB.EarliestDocument)
}

func TestBuildMetadata_EmbeddingCountReflectsEmbeddingsTable(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "Standup", CreatedAt: now, UpdatedAt: now}))

	diff, err := st.UpsertChunk(&model.Chunk{
		SourceType: model.SourceTypeNotesParagraph, SourceID: "doc-1:0", DocumentID: "doc-1",
		ContentHash: "hash1", Text: "some text", CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, st.UpsertEmbedding(&model.Embedding{ChunkID: diff.RowID, Vector: []float32{0.1, 0.2}}))
	require.NoError(t, st.SetEmbeddingMeta(model.EmbeddingMetaModelName, "nomic-embed-text"))

	meta, err := BuildMetadata(st)
	require.NoError(t, err)
	assert.EqualValues(t, 1, meta.IndexDB.EmbeddingCount)
	assert.Equal(t, "nomic-embed-text", meta.IndexDB.EmbeddingModel)
}
