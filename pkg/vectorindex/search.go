package vectorindex

import (
	"container/heap"
	"math"
)

// Hit is one result of a nearest-neighbour search.
type Hit struct {
	Type       string
	DocID      string
	Similarity float64
}

// SearchOptions narrows the exhaustive scan before scoring.
type SearchOptions struct {
	// TypeFilter, if non-nil, restricts the scan to these doc types.
	TypeFilter map[string]bool
}

// Search performs an exhaustive cosine scan against every record in the
// index, keeping the top K by similarity. Ties are broken by ascending
// (doc_type, doc_id), matching the format's deterministic ordering
// contract.
func (r *Reader) Search(query []float32, k int, opts SearchOptions) ([]Hit, error) {
	if len(query) != r.dimension {
		return nil, corruptErr("query vector dimension mismatch")
	}
	if k <= 0 {
		return nil, nil
	}

	h := &hitHeap{}
	heap.Init(h)

	err := r.IterRecords(func(rec VectorRecord) error {
		if opts.TypeFilter != nil && !opts.TypeFilter[string(rec.Type)] {
			return nil
		}
		sim := cosineSimilarity(query, rec.Vector)
		candidate := Hit{Type: string(rec.Type), DocID: rec.DocID, Similarity: sim}

		if h.Len() < k {
			heap.Push(h, candidate)
			return nil
		}
		if isBetter(candidate, (*h)[0]) {
			heap.Pop(h)
			heap.Push(h, candidate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]Hit, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(Hit)
	}
	return results, nil
}

// isBetter reports whether a should displace b as a weaker heap root:
// a ranks higher than b under descending similarity / ascending
// (type, doc_id) tie-break.
func isBetter(a, b Hit) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.DocID < b.DocID
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// hitHeap is a min-heap ordered so the weakest current top-K candidate
// sits at the root, ready to be evicted by a better one.
type hitHeap []Hit

func (h hitHeap) Len() int { return len(h) }
func (h hitHeap) Less(i, j int) bool {
	// Root should be the WORST hit, i.e. the one isBetter ranks lowest.
	return isBetter(h[j], h[i])
}
func (h hitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x interface{}) {
	*h = append(*h, x.(Hit))
}

func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
