// Package textutil provides small, pure text-manipulation primitives shared
// by the chunker and search dispatcher: paragraph splitting, markdown
// section splitting, panel-footer stripping, and boundary-safe slicing.
package textutil

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// headingPattern matches a markdown ATX heading at column 0: one to six
// '#' characters, a space, and the title.
var headingPattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+)$`)

// paragraphSplitPattern matches runs of two or more newlines (with optional
// surrounding whitespace on the blank lines), the paragraph separator.
var paragraphSplitPattern = regexp.MustCompile(`\n[ \t]*\n[ \t\n]*`)

// SplitIntoParagraphs splits text on runs of two-or-more newlines, trims
// each resulting paragraph, and discards empty ones.
func SplitIntoParagraphs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := paragraphSplitPattern.Split(text, -1)
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// Section is a (heading, body) pair produced by SplitMarkdownSections.
// Heading is empty for the leading section that precedes the first heading
// in the document, if any content precedes it.
type Section struct {
	Heading string
	Body    string
}

// SplitMarkdownSections splits markdown into a sequence of (optional
// heading, body) pairs. A heading is a line matching `#{1,6} <title>` at
// column 0; its body runs until the next heading or end of input. Content
// before any heading forms a leading section with an empty heading.
func SplitMarkdownSections(markdown string) []Section {
	matches := headingPattern.FindAllStringSubmatchIndex(markdown, -1)
	if len(matches) == 0 {
		if strings.TrimSpace(markdown) == "" {
			return nil
		}
		return []Section{{Heading: "", Body: strings.TrimSpace(markdown)}}
	}

	var sections []Section

	firstHeadingStart := matches[0][0]
	if leading := strings.TrimSpace(markdown[:firstHeadingStart]); leading != "" {
		sections = append(sections, Section{Heading: "", Body: leading})
	}

	for i, m := range matches {
		titleStart, titleEnd := m[4], m[5]
		title := strings.TrimSpace(markdown[titleStart:titleEnd])

		bodyStart := m[1]
		bodyEnd := len(markdown)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := strings.TrimSpace(markdown[bodyStart:bodyEnd])

		sections = append(sections, Section{Heading: title, Body: body})
	}

	return sections
}

// panelFooterLinkPattern matches a trailing markdown link whose text can be
// anything, anchored at the end of the (trimmed) document.
var panelFooterLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)\s*$`)

// StripPanelFooter removes a trailing markdown link whose URL host is
// notes.granola.ai, along with the single blank line immediately preceding
// it, if present. Returns a possibly-empty string.
func StripPanelFooter(markdown string) string {
	trimmedRight := strings.TrimRight(markdown, "\n\t ")
	loc := panelFooterLinkPattern.FindStringSubmatchIndex(trimmedRight)
	if loc == nil {
		return markdown
	}

	linkURL := trimmedRight[loc[4]:loc[5]]
	u, err := url.Parse(linkURL)
	if err != nil || u.Host != "notes.granola.ai" {
		return markdown
	}

	before := trimmedRight[:loc[0]]
	before = strings.TrimRight(before, " \t")
	before = strings.TrimSuffix(before, "\n") // end of the blank line
	before = strings.TrimRight(before, " \t")
	before = strings.TrimSuffix(before, "\n") // end of the preceding line
	return before
}

// ContainsIgnoreCase reports whether haystack contains needle, comparing
// with Unicode-aware case folding rather than a bytewise comparison.
func ContainsIgnoreCase(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// SafeSlice returns the byte range [start, end) of s, each bound rounded
// outward to the nearest rune boundary and clamped to [0, len(s)]. It never
// panics, regardless of how far out of range or how misordered start/end
// are, and the returned string's bytes always begin and end on character
// boundaries.
func SafeSlice(s string, start, end int) string {
	n := len(s)

	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if start > end {
		start, end = end, start
	}

	for start > 0 && start < n && !utf8.RuneStart(s[start]) {
		start--
	}
	for end > 0 && end < n && !utf8.RuneStart(s[end]) {
		end++
	}
	if end > n {
		end = n
	}

	return s[start:end]
}
