package keyword

import (
	"strings"
	"unicode"
)

// tokenize lower-cases and splits text on Unicode word boundaries,
// discarding empty runs. It is the same splitting rule the embedder
// uses for its hash projection, kept in sync so lexical and semantic
// retrieval agree on what a "word" is.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// edgeNGrams produces every prefix of length [min, max] of a token,
// feeding the text_prefix field used for prefix/autocomplete queries.
// Tokens shorter than min produce no n-grams.
func edgeNGrams(token string, min, max int) []string {
	runes := []rune(token)
	if len(runes) < min {
		return nil
	}
	upper := max
	if upper > len(runes) {
		upper = len(runes)
	}
	grams := make([]string, 0, upper-min+1)
	for n := min; n <= upper; n++ {
		grams = append(grams, string(runes[:n]))
	}
	return grams
}
