package chunk

import (
	"encoding/json"

	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/textutil"
)

// PanelSections splits one panel's content into one chunk per markdown
// section (heading + body, or just body for a headless leading section),
// after stripping the trailing Granola-link footer. Sections shorter than
// cfg.MinChars are dropped. Deleted panels and panels with empty content
// yield no chunks; callers should skip calling this for those and instead
// rely on DeleteOrphanedChunks to clear any chunks left over from before
// the panel was deleted or emptied.
func PanelSections(p *model.Panel, cfg Config) []*model.Chunk {
	if p.IsDeleted() || p.ContentMarkdown == "" {
		return nil
	}

	stripped := textutil.StripPanelFooter(p.ContentMarkdown)
	sections := textutil.SplitMarkdownSections(stripped)

	var chunks []*model.Chunk
	for idx, sec := range sections {
		text := sec.Body
		if sec.Heading != "" {
			text = sec.Heading + "\n\n" + sec.Body
		}
		if len(text) < cfg.MinChars {
			continue
		}

		meta := model.PanelSectionMetadata{
			PanelID:        p.ID,
			SectionHeading: sec.Heading,
			SectionIdx:     idx,
		}
		metaJSON, _ := json.Marshal(meta)

		chunks = append(chunks, &model.Chunk{
			SourceType:  model.SourceTypePanelSection,
			SourceID:    sourceID(p.ID, "s", idx),
			DocumentID:  p.DocumentID,
			Text:        text,
			ContentHash: HashContent(text),
			Metadata:    metaJSON,
		})
	}

	return chunks
}
