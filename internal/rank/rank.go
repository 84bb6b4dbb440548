// Package rank scores stored chunk embeddings against a query vector and
// reduces the result to one best match per document.
package rank

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/grans-cli/grans/internal/model"
)

// Result is one document's best-scoring match for a query.
type Result struct {
	DocumentID     string
	Score          float64
	SourceType     model.SourceType
	Text           string
	WindowStartIdx *int
	WindowEndIdx   *int
	MatchContext   string
}

// Rank scores every chunk in chunks (paired positionally with vectors in
// embeddings) against query, keeping chunks whose SourceType is in
// sourceTypes (all types pass if sourceTypes is empty) and whose score is
// >= minScore. Matches are deduplicated by document-id, keeping only the
// highest-scoring chunk per document, then sorted by score descending.
func Rank(query []float32, chunks []*model.Chunk, embeddings []*model.Embedding, sourceTypes []model.SourceType, minScore float64) []Result {
	allowed := make(map[model.SourceType]bool, len(sourceTypes))
	for _, t := range sourceTypes {
		allowed[t] = true
	}

	best := make(map[string]Result)
	for i, c := range chunks {
		if len(sourceTypes) > 0 && !allowed[c.SourceType] {
			continue
		}
		if i >= len(embeddings) {
			continue
		}
		score := cosineSimilarity(query, embeddings[i].Vector)
		if score < minScore {
			continue
		}
		if existing, ok := best[c.DocumentID]; ok && existing.Score >= score {
			continue
		}
		best[c.DocumentID] = buildResult(c, score)
	}

	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func buildResult(c *model.Chunk, score float64) Result {
	r := Result{
		DocumentID: c.DocumentID,
		Score:      score,
		SourceType: c.SourceType,
		Text:       c.Text,
	}

	switch c.SourceType {
	case model.SourceTypeTranscriptWindow:
		var meta model.TranscriptWindowMetadata
		if err := json.Unmarshal(c.Metadata, &meta); err == nil {
			start, end := meta.WindowStartIdx, meta.WindowEndIdx
			r.WindowStartIdx = &start
			r.WindowEndIdx = &end
		}
	case model.SourceTypePanelSection:
		var meta model.PanelSectionMetadata
		if err := json.Unmarshal(c.Metadata, &meta); err == nil {
			if meta.SectionHeading != "" {
				r.MatchContext = fmt.Sprintf("AI notes: %s", meta.SectionHeading)
			} else {
				r.MatchContext = "AI notes"
			}
		} else {
			r.MatchContext = "AI notes"
		}
	case model.SourceTypeNotesParagraph:
		r.MatchContext = "your notes"
	}

	return r
}

// cosineSimilarity returns dot(a,b) / (||a|| * ||b||), or 0 if either norm
// is zero.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
