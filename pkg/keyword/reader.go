package keyword

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Result is a single ranked hit returned by Search.
type Result struct {
	PackedID  string
	Type      string
	DocID     string
	CreatedAt int64
	Score     float64
}

// Reader is a thread-shareable, read-only handle over a committed index.
// It is built once per process (loading and gob-decoding every segment
// file up front) and never mutated afterward; concurrent Search calls
// need no external locking.
type Reader struct {
	segments []*segment
	k1, b    float64
}

// NewReader loads every segment named in dir's manifest. A directory with
// no manifest yet (nothing has ever been committed) yields an empty,
// valid reader rather than an error.
func NewReader(dir string, k1, b float64) (*Reader, error) {
	m, ok, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Reader{k1: k1, b: b}, nil
	}

	r := &Reader{k1: k1, b: b}
	for _, name := range m.Segments {
		seg, err := loadSegment(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		r.segments = append(r.segments, seg)
	}
	return r, nil
}

func loadSegment(path string) (*segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError(errors.Wrapf(err, "opening segment %s", path))
	}
	defer f.Close()

	var seg segment
	if err := gob.NewDecoder(f).Decode(&seg); err != nil {
		return nil, corruptError(errors.Wrapf(err, "decoding segment %s", path))
	}
	return &seg, nil
}

// Search parses raw and evaluates it across every loaded segment,
// returning hits ordered by descending BM25 score with ties broken by
// ascending packed id, matching the index's determinism contract. A
// query that parses cleanly but matches nothing returns an empty,
// non-nil slice.
func (r *Reader) Search(raw string) ([]Result, error) {
	q, err := parseQuery(raw)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0)
	for _, seg := range r.segments {
		matches := seg.evaluate(q, r.k1, r.b)
		for ord, score := range matches {
			doc := seg.Docs[ord]
			results = append(results, Result{
				PackedID:  doc.PackedID,
				Type:      doc.Type,
				DocID:     doc.DocID,
				CreatedAt: doc.CreatedAt,
				Score:     score,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PackedID < results[j].PackedID
	})
	return results, nil
}

// DocCount returns the total number of documents across all segments,
// used by the indexing summary and diagnostics.
func (r *Reader) DocCount() int {
	n := 0
	for _, seg := range r.segments {
		n += len(seg.Docs)
	}
	return n
}
