// Package chunk splits documents, panels, and transcripts into the
// text units that get embedded and searched: transcript windows, panel
// sections, and notes paragraphs.
package chunk

// Config is the character-budget chunking configuration, derived from an
// embedder's max_length M (in tokens) via fixed ratios.
type Config struct {
	TargetChars  int
	OverlapChars int
	MaxChars     int
	MinChars     int
}

const (
	defaultTargetRatio  = 0.68
	defaultOverlapRatio = 0.20
	defaultMinChars     = 50
	defaultCharsPerTok  = 4.0
)

// NewConfig derives a Config from an embedder's max_length in tokens.
// target = floor(0.68*M), overlap = floor(0.20*M); both are then
// converted from tokens to characters at charsPerToken (default 4.0).
// MaxChars is the hard ceiling an utterance or buffer must never exceed;
// it's set equal to the token budget M converted to characters, which is
// always >= TargetChars.
func NewConfig(maxLengthTokens int, charsPerToken, targetRatio, overlapRatio float64, minChars int) Config {
	if charsPerToken <= 0 {
		charsPerToken = defaultCharsPerTok
	}
	if targetRatio <= 0 {
		targetRatio = defaultTargetRatio
	}
	if overlapRatio <= 0 {
		overlapRatio = defaultOverlapRatio
	}
	if minChars <= 0 {
		minChars = defaultMinChars
	}

	targetTokens := int(targetRatio * float64(maxLengthTokens))
	overlapTokens := int(overlapRatio * float64(maxLengthTokens))

	return Config{
		TargetChars:  int(float64(targetTokens) * charsPerToken),
		OverlapChars: int(float64(overlapTokens) * charsPerToken),
		MaxChars:     int(float64(maxLengthTokens) * charsPerToken),
		MinChars:     minChars,
	}
}

// DefaultConfig derives a Config using the standard ratios, for callers
// that only have max_length available.
func DefaultConfig(maxLengthTokens int) Config {
	return NewConfig(maxLengthTokens, defaultCharsPerTok, defaultTargetRatio, defaultOverlapRatio, defaultMinChars)
}
