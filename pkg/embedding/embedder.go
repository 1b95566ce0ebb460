package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"xarchive/pkg/record"
)

// Dimension is the embedding's fixed width, matching the vector index
// file format's header field.
const Dimension = 384

// maxRunesFor returns the canonicalisation truncation cap for a record
// variant, per the embedder's contract (280 for Tweet/Like, 2000 for
// DM/Grok).
func maxRunesFor(t record.Type) int {
	switch t {
	case record.TypeTweet, record.TypeLike:
		return 280
	default:
		return 2000
	}
}

// Embed canonicalises text for the given record type and projects it
// into a 384-dimension unit vector via FNV-1a hash projection. ok is
// false when the text was rejected by canonicalisation (too short, or a
// stop-listed acknowledgement) — the caller must not persist a vector
// for such a record.
func Embed(t record.Type, text string) (vec []float32, contentHash string, ok bool) {
	canonical, ok := Canonicalize(text, maxRunesFor(t))
	if !ok {
		return nil, "", false
	}
	return project(canonical), contentHashOf(canonical), true
}

func contentHashOf(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// project implements the hash projection: lower-case and split on
// Unicode word boundaries, hash each token with 64-bit FNV-1a, and
// accumulate a signed unit vote into lane = h mod Dimension.
func project(canonical string) []float32 {
	vec := make([]float32, Dimension)
	for _, token := range splitWords(canonical) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		lane := sum % Dimension
		if sum>>63 == 0 {
			vec[lane] += 1
		} else {
			vec[lane] -= 1
		}
	}
	normalize(vec)
	return vec
}

func splitWords(text string) []string {
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

func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
}
