package vectorindex

import (
	"os"
	"path/filepath"
	"testing"

	"xarchive/pkg/record"
)

func unitVec(dim int, lane int) []float32 {
	v := make([]float32, dim)
	v[lane%dim] = 1
	return v
}

func TestWriteAndOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.xfvi")
	records := []VectorRecord{
		{Type: record.TypeTweet, DocID: "2", Vector: unitVec(4, 1)},
		{Type: record.TypeTweet, DocID: "1", Vector: unitVec(4, 0)},
		{Type: record.TypeLike, DocID: "1", Vector: unitVec(4, 2)},
	}
	if err := Write(path, records, 4); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if r.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", r.Count())
	}
	if r.Dimension() != 4 {
		t.Fatalf("Dimension() = %d, want 4", r.Dimension())
	}

	var seen []VectorRecord
	if err := r.IterRecords(func(rec VectorRecord) error {
		seen = append(seen, rec)
		return nil
	}); err != nil {
		t.Fatalf("IterRecords() error = %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("IterRecords() yielded %d records, want 3", len(seen))
	}
	// Native order is (doc_type asc, doc_id lex asc): like/1, tweet/1, tweet/2.
	wantOrder := []string{"1", "1", "2"}
	wantType := []record.Type{record.TypeLike, record.TypeTweet, record.TypeTweet}
	for i := range seen {
		if seen[i].DocID != wantOrder[i] || seen[i].Type != wantType[i] {
			t.Fatalf("IterRecords()[%d] = (%s,%s), want (%s,%s)", i, seen[i].Type, seen[i].DocID, wantType[i], wantOrder[i])
		}
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xfvi")
	garbage := make([]byte, 64)
	copy(garbage, "NOPE")
	if err := os.WriteFile(path, garbage, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("Open() error = nil, want corruption error for bad magic")
	}
	var verr *Error
	if e, ok := err.(*Error); ok {
		verr = e
	}
	if verr == nil || verr.Kind != KindCorrupt {
		t.Fatalf("error = %v, want KindCorrupt", err)
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.xfvi")
	records := []VectorRecord{{Type: record.TypeTweet, DocID: "1", Vector: unitVec(4, 0)}}
	if err := Write(path, records, 4); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	truncated := data[:len(data)-4]
	if err := os.WriteFile(path, truncated, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err = Open(path)
	if err == nil {
		t.Fatal("Open() error = nil, want corruption error for truncated file")
	}
}

func TestSearchReturnsTopKByCosineSimilarity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.xfvi")
	records := []VectorRecord{
		{Type: record.TypeTweet, DocID: "a", Vector: []float32{1, 0, 0, 0}},
		{Type: record.TypeTweet, DocID: "b", Vector: []float32{0, 1, 0, 0}},
		{Type: record.TypeTweet, DocID: "c", Vector: []float32{0.9, 0.1, 0, 0}},
	}
	if err := Write(path, records, 4); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	hits, err := r.Search([]float32{1, 0, 0, 0}, 2, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Search() returned %d hits, want 2", len(hits))
	}
	if hits[0].DocID != "a" {
		t.Fatalf("Search()[0] = %s, want a (exact match)", hits[0].DocID)
	}
	if hits[1].DocID != "c" {
		t.Fatalf("Search()[1] = %s, want c (closer than b)", hits[1].DocID)
	}
}

func TestSearchFiltersByType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.xfvi")
	records := []VectorRecord{
		{Type: record.TypeTweet, DocID: "a", Vector: []float32{1, 0, 0, 0}},
		{Type: record.TypeLike, DocID: "b", Vector: []float32{1, 0, 0, 0}},
	}
	if err := Write(path, records, 4); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	hits, err := r.Search([]float32{1, 0, 0, 0}, 10, SearchOptions{TypeFilter: map[string]bool{"like": true}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != "b" {
		t.Fatalf("Search() = %+v, want only doc b", hits)
	}
}

func TestWriteRejectsDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.xfvi")
	records := []VectorRecord{{Type: record.TypeTweet, DocID: "1", Vector: []float32{1, 2}}}
	if err := Write(path, records, 4); err == nil {
		t.Fatal("Write() error = nil, want dimension mismatch error")
	}
}

func TestEmptyIndexOpensAndReturnsNoHits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.xfvi")
	if err := Write(path, nil, 4); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	hits, err := r.Search([]float32{1, 0, 0, 0}, 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("Search() = %v, want no hits on empty index", hits)
	}
}
