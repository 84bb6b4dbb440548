package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TS01: Text already within the limit is returned unsplit.
func TestSplitAtLimit_FitsAsIs(t *testing.T) {
	fits, remainder := splitAtLimit("short text", 100)
	assert.Equal(t, "short text", fits)
	assert.Empty(t, remainder)
}

// TS02: A sentence terminator within the search window wins over a word
// boundary, and the punctuation stays with the fitting half.
func TestSplitAtLimit_PrefersSentenceBoundary(t *testing.T) {
	text := "First sentence. Second sentence continues on and on."
	fits, remainder := splitAtLimit(text, 20)
	require.True(t, strings.HasSuffix(fits, "."))
	assert.Equal(t, "First sentence.", fits)
	assert.Equal(t, "Second sentence continues on and on.", remainder)
}

// TS03: With no sentence terminator in range, falls back to the last space.
func TestSplitAtLimit_FallsBackToWordBoundary(t *testing.T) {
	text := "one two three four five six seven"
	fits, remainder := splitAtLimit(text, 10)
	assert.False(t, strings.ContainsAny(fits, ".!?"))
	assert.Equal(t, "one two", fits)
	assert.Equal(t, "three four five six seven", remainder)
}

// TS04: No sentence terminator and no space within the window forces a
// hard split exactly at the limit.
func TestSplitAtLimit_HardSplitsWithNoBoundaries(t *testing.T) {
	text := strings.Repeat("a", 30)
	fits, remainder := splitAtLimit(text, 10)
	assert.Len(t, fits, 10)
	assert.Equal(t, strings.Repeat("a", 20), remainder)
}

// TS05: Splitting drops only the whitespace at the split point; no other
// character of the input is dropped or duplicated.
func TestSplitAtLimit_PreservesAllContent(t *testing.T) {
	text := "Alpha beta gamma. Delta epsilon zeta? Eta theta iota!"
	fits, remainder := splitAtLimit(text, 25)
	assert.Equal(t, text, fits+" "+remainder)
}

// TS06: A question mark counts as a sentence terminator.
func TestSplitAtLimit_HandlesQuestionMark(t *testing.T) {
	text := "Is this it? Yes, this is it, plus some more trailing words."
	fits, remainder := splitAtLimit(text, 15)
	assert.Equal(t, "Is this it?", fits)
	assert.Equal(t, "Yes, this is it, plus some more trailing words.", remainder)
}

// TS07: An empty string fits trivially.
func TestSplitAtLimit_EmptyString(t *testing.T) {
	fits, remainder := splitAtLimit("", 10)
	assert.Empty(t, fits)
	assert.Empty(t, remainder)
}

// TS08: Text exactly at the boundary length fits without splitting.
func TestSplitAtLimit_ExactBoundaryLength(t *testing.T) {
	text := strings.Repeat("x", 10)
	fits, remainder := splitAtLimit(text, 10)
	assert.Equal(t, text, fits)
	assert.Empty(t, remainder)
}

// TS09: A hard split never lands inside a multi-byte rune.
func TestSplitAtLimit_HardSplitNeverSplitsRune(t *testing.T) {
	text := strings.Repeat("日本語テスト", 10)
	fits, remainder := splitAtLimit(text, 17)
	assert.True(t, utf8.ValidString(fits))
	assert.True(t, utf8.ValidString(remainder))
	assert.Equal(t, text, fits+remainder)
}
