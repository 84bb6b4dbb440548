package search

import (
	"context"
	"testing"
	"time"

	"github.com/grans-cli/grans/internal/embed"
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

func seedDoc(t *testing.T, st *store.Store, id, title, notes string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, st.UpsertDocument(&model.Document{
		ID: id, Title: title, CreatedAt: createdAt, UpdatedAt: createdAt, NotesPlain: notes,
	}))
}

// ============================================================================
// TS01: Keyword Mode
// ============================================================================

func TestSearch_Keyword_TitleMatch(t *testing.T) {
	st := openTestStore(t)
	seedDoc(t, st, "doc-1", "Roadmap Planning", "", time.Now().UTC())
	seedDoc(t, st, "doc-2", "Unrelated", "", time.Now().UTC())

	d := New(st, embed.NewMockEmbedder(8), t.TempDir(), 0)
	result, err := d.Search(context.Background(), Options{Query: "roadmap", Targets: map[Target]bool{TargetTitles: true}})
	require.NoError(t, err)
	assert.Equal(t, "keyword", result.Mode)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "doc-1", result.Documents[0].Document.ID)
}

func TestSearch_Keyword_NotesMatch(t *testing.T) {
	st := openTestStore(t)
	seedDoc(t, st, "doc-1", "Standup", "we discussed the migration plan", time.Now().UTC())

	d := New(st, embed.NewMockEmbedder(8), t.TempDir(), 0)
	result, err := d.Search(context.Background(), Options{Query: "migration", Targets: map[Target]bool{TargetNotes: true}})
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "doc-1", result.Documents[0].Document.ID)
}

func TestSearch_Keyword_DateFilterExcludesOutOfRange(t *testing.T) {
	st := openTestStore(t)
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	seedDoc(t, st, "doc-1", "Old meeting", "", old)

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := New(st, embed.NewMockEmbedder(8), t.TempDir(), 0)
	result, err := d.Search(context.Background(), Options{Query: "meeting", Targets: map[Target]bool{TargetTitles: true}, Since: &since})
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
}

func TestSearch_Keyword_OrderedByCreatedAtDescending(t *testing.T) {
	st := openTestStore(t)
	seedDoc(t, st, "doc-1", "meeting one", "", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	seedDoc(t, st, "doc-2", "meeting two", "", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	d := New(st, embed.NewMockEmbedder(8), t.TempDir(), 0)
	result, err := d.Search(context.Background(), Options{Query: "meeting", Targets: map[Target]bool{TargetTitles: true}})
	require.NoError(t, err)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, "doc-2", result.Documents[0].Document.ID)
}

// ============================================================================
// TS02: Contextual Mode
// ============================================================================

func TestSearch_Contextual_TitlesOnly_ReturnsMessage(t *testing.T) {
	st := openTestStore(t)
	d := New(st, embed.NewMockEmbedder(8), t.TempDir(), 0)

	result, err := d.Search(context.Background(), Options{
		Query: "x", ContextSize: 1, Targets: map[Target]bool{TargetTitles: true},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Message)
}

func TestSearch_Contextual_Notes_ReturnsWindow(t *testing.T) {
	st := openTestStore(t)
	seedDoc(t, st, "doc-1", "Standup", "intro paragraph here.\n\nwe discussed the migration plan in depth.\n\nclosing remarks follow.", time.Now().UTC())

	d := New(st, embed.NewMockEmbedder(8), t.TempDir(), 0)
	result, err := d.Search(context.Background(), Options{
		Query: "migration", ContextSize: 1, Targets: map[Target]bool{TargetNotes: true},
	})
	require.NoError(t, err)
	require.Len(t, result.ContextWindows, 1)
	assert.Contains(t, result.ContextWindows[0].Text, "migration")
	assert.Equal(t, "your notes", result.ContextWindows[0].MatchContext)
}

// ============================================================================
// TS03: Semantic Mode
// ============================================================================

func TestSearch_Semantic_ReturnsRankedMatches(t *testing.T) {
	st := openTestStore(t)
	seedDoc(t, st, "doc-1", "Standup", "a paragraph with plenty of words to survive chunking thresholds easily.", time.Now().UTC())

	d := New(st, embed.NewMockEmbedder(16), t.TempDir(), 0)
	result, err := d.Search(context.Background(), Options{
		Query: "a paragraph with plenty of words to survive chunking thresholds easily.",
		Semantic: true, Targets: map[Target]bool{TargetNotes: true}, BypassConfirm: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "semantic", result.Mode)
	require.Len(t, result.SemanticMatches, 1)
	assert.Equal(t, "doc-1", result.SemanticMatches[0].DocumentID)
}

func TestSearch_Semantic_TitlesOnly_ReturnsMessage(t *testing.T) {
	st := openTestStore(t)
	d := New(st, embed.NewMockEmbedder(8), t.TempDir(), 0)

	result, err := d.Search(context.Background(), Options{
		Query: "x", Semantic: true, Targets: map[Target]bool{TargetTitles: true}, BypassConfirm: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Message)
}

// ============================================================================
// TS04: Mode Precedence
// ============================================================================

func TestSearch_SemanticTakesPrecedenceOverContextual(t *testing.T) {
	st := openTestStore(t)
	seedDoc(t, st, "doc-1", "Standup", "a paragraph with plenty of words to survive chunking thresholds easily.", time.Now().UTC())

	d := New(st, embed.NewMockEmbedder(16), t.TempDir(), 0)
	result, err := d.Search(context.Background(), Options{
		Query:       "a paragraph with plenty of words to survive chunking thresholds easily.",
		Semantic:    true,
		ContextSize: 2,
		Targets:     map[Target]bool{TargetNotes: true},
		BypassConfirm: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "semantic", result.Mode)
}
