// Package fusion combines independently ranked lexical and semantic
// result lists into a single ordering via Reciprocal Rank Fusion. RRF
// is used instead of score normalisation because BM25 magnitudes and
// cosine similarities are not commensurable and vary per query;
// rank-only fusion is invariant to those scales.
package fusion

import "sort"

// K is the RRF smoothing constant. Changing it changes output — it is
// part of the fusion's public contract, not a tuning knob.
const K = 60

// Ranked is one entry in an input list, ordered by descending score
// (the score itself is not used by RRF, only the entry's rank).
type Ranked struct {
	Type  string
	DocID string
}

// Fused is one entry of the fused output, carrying its RRF score.
type Fused struct {
	Type  string
	DocID string
	Score float64
}

func key(t, id string) string { return t + ":" + id }

// Fuse combines lexical and semantic into one descending-score ordering.
// A document present in both lists accumulates both reciprocal-rank
// terms. Ties are broken by ascending doc_id.
func Fuse(lexical, semantic []Ranked) []Fused {
	scores := make(map[string]float64)
	meta := make(map[string]Ranked)

	accumulate := func(list []Ranked) {
		for rank, r := range list {
			k := key(r.Type, r.DocID)
			scores[k] += 1.0 / float64(K+rank+1)
			meta[k] = r
		}
	}
	accumulate(lexical)
	accumulate(semantic)

	out := make([]Fused, 0, len(scores))
	for k, score := range scores {
		r := meta[k]
		out = append(out, Fused{Type: r.Type, DocID: r.DocID, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DocID != out[j].DocID {
			return out[i].DocID < out[j].DocID
		}
		return out[i].Type < out[j].Type
	})
	return out
}
