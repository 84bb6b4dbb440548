package chunk

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grans-cli/grans/internal/model"
)

func testDocument(notesPlain string) *model.Document {
	return &model.Document{
		ID:         "doc1",
		Title:      "Meeting",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		NotesPlain: notesPlain,
	}
}

// TS01: Each blank-line-separated paragraph becomes its own chunk, in
// order, with a paragraph_idx matching its position.
func TestNotesParagraphs_OneChunkPerParagraph(t *testing.T) {
	cfg := Config{MinChars: 5}
	doc := testDocument("First paragraph with enough length.\n\nSecond paragraph also long enough.")

	chunks := NotesParagraphs(doc, cfg)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph with enough length.", chunks[0].Text)
	assert.Equal(t, "doc1:n0", chunks[0].SourceID)
	assert.Equal(t, "Second paragraph also long enough.", chunks[1].Text)
	assert.Equal(t, "doc1:n1", chunks[1].SourceID)

	var meta model.NotesParagraphMetadata
	require.NoError(t, json.Unmarshal(chunks[1].Metadata, &meta))
	assert.Equal(t, 1, meta.ParagraphIdx)
}

// TS02: Paragraphs shorter than MinChars are dropped, but the surviving
// paragraphs keep their original index rather than being renumbered.
func TestNotesParagraphs_DropsShortParagraphs_KeepsOriginalIndex(t *testing.T) {
	cfg := Config{MinChars: 20}
	doc := testDocument("short\n\nThis paragraph is long enough to keep.")

	chunks := NotesParagraphs(doc, cfg)
	require.Len(t, chunks, 1)

	var meta model.NotesParagraphMetadata
	require.NoError(t, json.Unmarshal(chunks[0].Metadata, &meta))
	assert.Equal(t, 1, meta.ParagraphIdx, "the dropped short paragraph still occupied index 0")
}

// TS03: A document with empty notes yields no chunks.
func TestNotesParagraphs_EmptyNotes_YieldsNothing(t *testing.T) {
	cfg := Config{MinChars: 1}
	doc := testDocument("")

	chunks := NotesParagraphs(doc, cfg)
	assert.Empty(t, chunks)
}

// TS04: A soft-deleted document yields no chunks regardless of its notes.
func TestNotesParagraphs_DeletedDocument_YieldsNothing(t *testing.T) {
	cfg := Config{MinChars: 1}
	doc := testDocument("Some notes that would otherwise produce a chunk.")
	deletedAt := time.Now()
	doc.DeletedAt = &deletedAt

	chunks := NotesParagraphs(doc, cfg)
	assert.Empty(t, chunks)
}
