package chunk

import (
	"fmt"
	"time"

	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/store"
)

// Result summarizes one Run over the store.
type Result struct {
	DocumentsProcessed int
	ChunksUpserted     int
	ChunksOrphaned     int64
}

// Run re-chunks every non-deleted document's transcript, panels, and notes
// against cfg, upserting the resulting chunks and deleting any chunk left
// behind by a source that shrank or disappeared. It does not touch
// embeddings directly; store.UpsertChunk invalidates a chunk's embedding
// only when its content hash actually changed.
func Run(st *store.Store, cfg Config) (Result, error) {
	docs, err := st.ListDocuments(false, nil)
	if err != nil {
		return Result{}, fmt.Errorf("listing documents: %w", err)
	}

	var result Result
	now := time.Now().UTC()

	for _, doc := range docs {
		result.DocumentsProcessed++

		utterances, err := st.ListUtterances(doc.ID)
		if err != nil {
			return result, fmt.Errorf("listing utterances for %s: %w", doc.ID, err)
		}
		windows := TranscriptWindows(doc.ID, utterances, cfg)
		if n, err := upsertAndReconcile(st, doc.ID, model.SourceTypeTranscriptWindow, windows, now); err != nil {
			return result, err
		} else {
			result.ChunksUpserted += len(windows)
			result.ChunksOrphaned += n
		}

		notes := NotesParagraphs(doc, cfg)
		if n, err := upsertAndReconcile(st, doc.ID, model.SourceTypeNotesParagraph, notes, now); err != nil {
			return result, err
		} else {
			result.ChunksUpserted += len(notes)
			result.ChunksOrphaned += n
		}

		panels, err := st.ListPanels(doc.ID, false)
		if err != nil {
			return result, fmt.Errorf("listing panels for %s: %w", doc.ID, err)
		}
		var panelChunks []*model.Chunk
		for _, p := range panels {
			panelChunks = append(panelChunks, PanelSections(p, cfg)...)
		}
		if n, err := upsertAndReconcile(st, doc.ID, model.SourceTypePanelSection, panelChunks, now); err != nil {
			return result, err
		} else {
			result.ChunksUpserted += len(panelChunks)
			result.ChunksOrphaned += n
		}
	}

	return result, nil
}

func upsertAndReconcile(st *store.Store, documentID string, sourceType model.SourceType, chunks []*model.Chunk, createdAt time.Time) (int64, error) {
	keepIDs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		c.CreatedAt = createdAt
		if _, err := st.UpsertChunk(c); err != nil {
			return 0, fmt.Errorf("upserting %s chunk %s: %w", sourceType, c.SourceID, err)
		}
		keepIDs = append(keepIDs, c.SourceID)
	}
	return st.DeleteOrphanedChunks(documentID, sourceType, keepIDs)
}
