// Package embedding implements the deterministic, dependency-free hash
// projection embedder: canonicalise text, hash each token with FNV-1a,
// and accumulate into a fixed-dimension unit vector. It deliberately
// does no neural inference — the projection's determinism is what keeps
// the vector index file format and golden-output tests stable across
// rebuilds.
package embedding

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	boldPattern    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicPattern  = regexp.MustCompile(`\*([^*]+)\*`)
	linkPattern    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingPattern = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	listPattern    = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	fencedPattern  = regexp.MustCompile("(?s)```.*?```")
	horizWhitespace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n{2,}`)
)

var stopList = map[string]struct{}{
	"ok": {}, "thanks": {}, "done": {}, "+1": {},
}

// stripMarkdown removes the lightweight markdown constructs the
// canonicalisation pipeline is scoped to: bold/italic emphasis, link
// text, ATX headings, leading list markers, and fenced code blocks
// (collapsed to their first 20 and last 10 lines).
func stripMarkdown(text string) string {
	text = fencedPattern.ReplaceAllStringFunc(text, collapseFencedBlock)
	text = linkPattern.ReplaceAllString(text, "$1")
	text = boldPattern.ReplaceAllString(text, "$1")
	text = italicPattern.ReplaceAllString(text, "$1")
	text = headingPattern.ReplaceAllString(text, "")
	text = listPattern.ReplaceAllString(text, "")
	return text
}

func collapseFencedBlock(block string) string {
	lines := strings.Split(block, "\n")
	if len(lines) <= 31 {
		return block
	}
	head := lines[:20]
	tail := lines[len(lines)-10:]
	out := append([]string{}, head...)
	out = append(out, "…")
	out = append(out, tail...)
	return strings.Join(out, "\n")
}

func collapseWhitespace(text string) string {
	text = horizWhitespace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n")
	return text
}

func isLowSignal(text string) bool {
	trimmed := strings.TrimSpace(text)
	nonSpace := 0
	for _, r := range trimmed {
		if !unicode.IsSpace(r) {
			nonSpace++
		}
	}
	if nonSpace < 3 {
		return true
	}
	if _, stop := stopList[strings.ToLower(trimmed)]; stop {
		return true
	}
	// Punctuation- or emoji-only text (e.g. "!!!!", "😀😀😀") passes the
	// length and stop-list checks but hashes to no tokens at all, which
	// would otherwise leave project() with nothing to accumulate and
	// normalize() returning a zero vector.
	if len(splitWords(trimmed)) == 0 {
		return true
	}
	return false
}

func truncateForVariant(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}

// Canonicalize runs the full pipeline: NFC normalisation, markdown
// stripping, whitespace collapse, low-signal rejection, then truncation
// to maxRunes. It returns ok=false when the text should not be embedded
// at all (the caller must not store a vector for it).
func Canonicalize(text string, maxRunes int) (out string, ok bool) {
	normalized := norm.NFC.String(text)
	stripped := stripMarkdown(normalized)
	collapsed := strings.TrimSpace(collapseWhitespace(stripped))

	if isLowSignal(collapsed) {
		return "", false
	}
	return truncateForVariant(collapsed, maxRunes), true
}
