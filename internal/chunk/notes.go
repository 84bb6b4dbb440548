package chunk

import (
	"encoding/json"

	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/textutil"
)

// NotesParagraphs splits one document's plain-text notes into one chunk
// per paragraph, dropping paragraphs shorter than cfg.MinChars. Deleted
// documents and documents with empty notes yield no chunks.
func NotesParagraphs(doc *model.Document, cfg Config) []*model.Chunk {
	if doc.IsDeleted() || doc.NotesPlain == "" {
		return nil
	}

	paragraphs := textutil.SplitIntoParagraphs(doc.NotesPlain)

	var chunks []*model.Chunk
	for idx, text := range paragraphs {
		if len(text) < cfg.MinChars {
			continue
		}

		meta := model.NotesParagraphMetadata{ParagraphIdx: idx}
		metaJSON, _ := json.Marshal(meta)

		chunks = append(chunks, &model.Chunk{
			SourceType:  model.SourceTypeNotesParagraph,
			SourceID:    sourceID(doc.ID, "n", idx),
			DocumentID:  doc.ID,
			Text:        text,
			ContentHash: HashContent(text),
			Metadata:    metaJSON,
		})
	}

	return chunks
}
