package chunk

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/textutil"
)

// TranscriptWindows buffers a document's utterances into overlapping
// windows sized by cfg, in the order given (callers pass utterances
// ordered by start_timestamp). Each window becomes one
// SourceTypeTranscriptWindow chunk with source-id
// "{document_id}:c{sequence}".
func TranscriptWindows(documentID string, utterances []*model.TranscriptUtterance, cfg Config) []*model.Chunk {
	var (
		chunks                     []*model.Chunk
		buffer                     string
		bufferStartIdx, bufferEndIdx int
		bufferStartTS, bufferEndTS *time.Time
		chunkIdx                   int
	)

	flush := func() {
		if len(buffer) >= cfg.MinChars {
			chunks = append(chunks, windowChunk(documentID, chunkIdx, buffer, bufferStartIdx, bufferEndIdx, bufferStartTS, bufferEndTS))
			chunkIdx++
		}
		overlapStart := len(buffer) - cfg.OverlapChars
		if overlapStart < 0 {
			overlapStart = 0
		}
		buffer = textutil.SafeSlice(buffer, overlapStart, len(buffer))
	}

	for i, utt := range utterances {
		textToAdd := formatUtteranceText(utt.Text, utt.Source)
		if strings.TrimSpace(textToAdd) == "" {
			continue
		}

		combinedLen := len(textToAdd)
		if buffer != "" {
			combinedLen = len(buffer) + 1 + len(textToAdd)
		}

		if combinedLen > cfg.MaxChars && buffer != "" {
			flush()
			bufferStartIdx = i
			bufferStartTS = nil
		}

		remaining := textToAdd
		for len(remaining) > cfg.MaxChars {
			fits, rest := splitAtLimit(remaining, cfg.MaxChars)

			if buffer == "" {
				buffer = fits
				bufferStartIdx = i
			} else {
				buffer = buffer + "\n" + fits
			}
			bufferEndIdx = i
			if bufferStartTS == nil {
				st := utt.StartTimestamp
				bufferStartTS = &st
			}
			et := utt.EndTimestamp
			bufferEndTS = &et

			flush()
			bufferStartIdx = i
			bufferStartTS = nil
			remaining = rest
		}

		if remaining == "" {
			continue
		}

		newCombinedLen := len(remaining)
		if buffer != "" {
			newCombinedLen = len(buffer) + 1 + len(remaining)
		}
		if newCombinedLen > cfg.TargetChars && buffer != "" {
			flush()
			bufferStartIdx = i
			bufferStartTS = nil
		}

		if buffer == "" {
			buffer = remaining
			bufferStartIdx = i
			st := utt.StartTimestamp
			bufferStartTS = &st
		} else {
			buffer = buffer + "\n" + remaining
		}
		bufferEndIdx = i
		et := utt.EndTimestamp
		bufferEndTS = &et
	}

	if len(buffer) >= cfg.MinChars {
		chunks = append(chunks, windowChunk(documentID, chunkIdx, buffer, bufferStartIdx, bufferEndIdx, bufferStartTS, bufferEndTS))
	}

	return chunks
}

func windowChunk(documentID string, idx int, text string, startIdx, endIdx int, startTS, endTS *time.Time) *model.Chunk {
	meta := model.TranscriptWindowMetadata{
		WindowStartIdx: startIdx,
		WindowEndIdx:   endIdx,
		StartTimestamp: startTS,
		EndTimestamp:   endTS,
	}
	metaJSON, _ := json.Marshal(meta)
	return &model.Chunk{
		SourceType:  model.SourceTypeTranscriptWindow,
		SourceID:    sourceID(documentID, "c", idx),
		DocumentID:  documentID,
		Text:        text,
		ContentHash: HashContent(text),
		Metadata:    metaJSON,
	}
}

// formatUtteranceText prefixes non-empty text with a speaker label.
// Empty or whitespace-only text is returned as "" regardless of source,
// so it contributes nothing to a buffer and is skipped upstream.
func formatUtteranceText(text string, source model.UtteranceSource) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return source.SpeakerLabel() + text
}

// splitAtLimit splits text so the first return value fits within
// maxChars, preferring a sentence boundary, then a word boundary, then a
// rune-safe hard cut. If text already fits, returns (text, "").
func splitAtLimit(text string, maxChars int) (fits, remainder string) {
	if len(text) <= maxChars {
		return text, ""
	}

	searchArea := text[:maxChars]

	if pos := strings.LastIndexAny(searchArea, ".!?"); pos >= 0 {
		boundary := pos + 1
		if boundary > 0 {
			return text[:boundary], strings.TrimLeft(text[boundary:], " \t\n")
		}
	}

	if pos := strings.LastIndexByte(searchArea, ' '); pos > 0 {
		return text[:pos], strings.TrimLeft(text[pos:], " \t\n")
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		cut = len(textutil.SafeSlice(text, 0, maxChars))
	}
	return text[:cut], text[cut:]
}
