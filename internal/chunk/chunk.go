package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashContent returns the content-address for a chunk's final text, after
// any speaker-label prefixing or section-heading prepending has already
// been applied. Two chunks with the same hash are byte-identical content.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// sourceID builds the "{document-or-panel-id}:{tag}{index}" source-id
// convention shared by all three chunker subroutines.
func sourceID(parentID, tag string, idx int) string {
	return fmt.Sprintf("%s:%s%d", parentID, tag, idx)
}
