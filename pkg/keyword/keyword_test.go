package keyword

import (
	"path/filepath"
	"testing"
)

func buildTestIndex(t *testing.T, docs []Doc) *Reader {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "idx")
	w, err := NewWriter(dir, 2, 8, 1000)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	for _, d := range docs {
		w.AddDoc(d)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	r, err := NewReader(dir, 1.2, 0.75)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	return r
}

func TestSearchBareTermsCombineByOr(t *testing.T) {
	r := buildTestIndex(t, []Doc{
		{Type: "tweet", DocID: "1", Text: "rust is fast", CreatedAt: 1},
		{Type: "tweet", DocID: "2", Text: "async programming in go", CreatedAt: 2},
		{Type: "tweet", DocID: "3", Text: "snake charming", CreatedAt: 3},
	})
	results, err := r.Search("rust snake")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
}

func TestSearchRustAndAsyncNotSnake(t *testing.T) {
	r := buildTestIndex(t, []Doc{
		{Type: "tweet", DocID: "1", Text: "rust async runtime", CreatedAt: 1},
		{Type: "tweet", DocID: "2", Text: "rust async snake charmer", CreatedAt: 2},
		{Type: "tweet", DocID: "3", Text: "snake only", CreatedAt: 3},
	})
	results, err := r.Search("rust AND async NOT snake")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].DocID != "1" {
		t.Fatalf("Search() = %+v, want only doc 1", results)
	}
}

func TestSearchPhraseQuery(t *testing.T) {
	r := buildTestIndex(t, []Doc{
		{Type: "tweet", DocID: "1", Text: "the quick brown fox", CreatedAt: 1},
		{Type: "tweet", DocID: "2", Text: "quick and the brown one", CreatedAt: 2},
	})
	results, err := r.Search(`"quick brown"`)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].DocID != "1" {
		t.Fatalf("Search() = %+v, want only doc 1 (exact phrase)", results)
	}
}

func TestSearchPrefixQuery(t *testing.T) {
	r := buildTestIndex(t, []Doc{
		{Type: "tweet", DocID: "1", Text: "searching for answers", CreatedAt: 1},
		{Type: "tweet", DocID: "2", Text: "unrelated content", CreatedAt: 2},
	})
	results, err := r.Search("sear*")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].DocID != "1" {
		t.Fatalf("Search() = %+v, want only doc 1 (prefix match)", results)
	}
}

func TestSearchNoMatchReturnsEmptyNotError(t *testing.T) {
	r := buildTestIndex(t, []Doc{
		{Type: "tweet", DocID: "1", Text: "hello world", CreatedAt: 1},
	})
	results, err := r.Search("nonexistentterm")
	if err != nil {
		t.Fatalf("Search() error = %v, want nil", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("Search() = %v, want empty non-nil slice", results)
	}
}

func TestSearchTieBreaksByAscendingPackedID(t *testing.T) {
	r := buildTestIndex(t, []Doc{
		{Type: "tweet", DocID: "b", Text: "same text here", CreatedAt: 1},
		{Type: "tweet", DocID: "a", Text: "same text here", CreatedAt: 2},
	})
	results, err := r.Search("same text")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Score == results[1].Score && results[0].DocID != "a" {
		t.Fatalf("tie-break order = %v, want ascending packed id (a before b)", results)
	}
}

func TestSearchUnterminatedQuoteIsParseError(t *testing.T) {
	r := buildTestIndex(t, []Doc{{Type: "tweet", DocID: "1", Text: "hello", CreatedAt: 1}})
	_, err := r.Search(`"unterminated`)
	if err == nil {
		t.Fatal("Search() error = nil, want parse error for unterminated quote")
	}
	var kerr *Error
	if !asKeywordError(err, &kerr) || kerr.Kind != KindQueryParse {
		t.Fatalf("error = %v, want KindQueryParse", err)
	}
}

func asKeywordError(err error, target **Error) bool {
	if e, ok := err.(*Error); ok {
		*target = e
		return true
	}
	return false
}

func TestWriterLastWriteWinsWithinBatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	w, err := NewWriter(dir, 2, 8, 1000)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	w.AddDoc(Doc{Type: "tweet", DocID: "1", Text: "first version", CreatedAt: 1})
	w.AddDoc(Doc{Type: "tweet", DocID: "1", Text: "second version", CreatedAt: 2})
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	r, err := NewReader(dir, 1.2, 0.75)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if r.DocCount() != 1 {
		t.Fatalf("DocCount() = %d, want 1 after duplicate add", r.DocCount())
	}
	results, err := r.Search("second")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatal("expected the second write to have won")
	}
}

func TestClearEmptiesIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	w, err := NewWriter(dir, 2, 8, 1000)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	w.AddDoc(Doc{Type: "tweet", DocID: "1", Text: "hello", CreatedAt: 1})
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := w.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() after Clear() error = %v", err)
	}

	r, err := NewReader(dir, 1.2, 0.75)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if r.DocCount() != 0 {
		t.Fatalf("DocCount() = %d, want 0 after Clear()", r.DocCount())
	}
}

func TestEdgeNGramsRespectsBounds(t *testing.T) {
	grams := edgeNGrams("searching", 2, 4)
	want := []string{"se", "sea", "sear"}
	if len(grams) != len(want) {
		t.Fatalf("edgeNGrams() = %v, want %v", grams, want)
	}
	for i := range want {
		if grams[i] != want[i] {
			t.Fatalf("edgeNGrams()[%d] = %q, want %q", i, grams[i], want[i])
		}
	}
}

func TestEdgeNGramsShortTokenProducesNone(t *testing.T) {
	if grams := edgeNGrams("a", 2, 8); grams != nil {
		t.Fatalf("edgeNGrams() = %v, want nil for token shorter than min", grams)
	}
}
