package keyword

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const manifestFile = "manifest.gob"

// manifest lists the segment files that make up a committed index, in
// the order the reader should merge them.
type manifest struct {
	Segments []string
	MinGram  int
	MaxGram  int
}

// Writer accumulates documents in memory and flushes them into bounded,
// immutable segment files under dir. Within a single uncommitted batch,
// adding the same id twice keeps only the last value (spec's "last
// write wins" contract); across commits, a later segment's postings
// simply add another occurrence of that id, which the reader does not
// attempt to deduplicate — callers are expected to call Clear before a
// full re-index, matching the indexing orchestrator's force-reindex path.
type Writer struct {
	dir         string
	minGram     int
	maxGram     int
	segmentSize int

	mu         sync.Mutex
	pending    []Doc
	pendingIdx map[string]int
	nextSeg    int
	segments   []string
}

// NewWriter opens (creating if necessary) an index directory for writing.
func NewWriter(dir string, minGram, maxGram, segmentSize int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioError(errors.Wrap(err, "creating index directory"))
	}
	w := &Writer{
		dir:         dir,
		minGram:     minGram,
		maxGram:     maxGram,
		segmentSize: segmentSize,
		pendingIdx:  make(map[string]int),
	}
	if m, ok, err := loadManifest(dir); err != nil {
		return nil, err
	} else if ok {
		w.segments = m.Segments
		w.nextSeg = len(m.Segments)
	}
	return w, nil
}

// AddDoc stages a document for indexing. It is commutative for distinct
// ids and idempotent (last write wins) for a repeated id within the
// same uncommitted batch.
func (w *Writer) AddDoc(d Doc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := packID(d.Type, d.DocID)
	d.ID = id
	if idx, ok := w.pendingIdx[id]; ok {
		w.pending[idx] = d
		return
	}
	w.pendingIdx[id] = len(w.pending)
	w.pending = append(w.pending, d)

	if w.segmentSize > 0 && len(w.pending) >= w.segmentSize {
		if err := w.flushLocked(); err == nil {
			_ = w.writeManifestLocked()
		}
	}
}

// Commit flushes any staged documents into a final segment and
// publishes an updated manifest. It is safe to call with nothing
// pending (a no-op beyond rewriting the manifest).
func (w *Writer) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		if err := w.flushLocked(); err != nil {
			return err
		}
	}
	return w.writeManifestLocked()
}

// Clear atomically empties the index: pending documents are dropped and
// every segment file plus the manifest are removed.
func (w *Writer) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = os.Remove(filepath.Join(w.dir, manifestFile))
	for _, name := range w.segments {
		_ = os.Remove(filepath.Join(w.dir, name))
	}

	w.pending = nil
	w.pendingIdx = make(map[string]int)
	w.segments = nil
	w.nextSeg = 0
	return nil
}

func (w *Writer) flushLocked() error {
	seg := buildSegment(w.pending, w.minGram, w.maxGram)
	name := fmt.Sprintf("segment-%05d.gob", w.nextSeg)
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return ioError(errors.Wrapf(err, "creating segment file %s", name))
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(seg); err != nil {
		return ioError(errors.Wrapf(err, "encoding segment %s", name))
	}

	w.segments = append(w.segments, name)
	w.nextSeg++
	w.pending = nil
	w.pendingIdx = make(map[string]int)
	return nil
}

func (w *Writer) writeManifestLocked() error {
	path := filepath.Join(w.dir, manifestFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return ioError(errors.Wrap(err, "creating manifest"))
	}
	m := manifest{Segments: w.segments, MinGram: w.minGram, MaxGram: w.maxGram}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return ioError(errors.Wrap(err, "encoding manifest"))
	}
	if err := f.Close(); err != nil {
		return ioError(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ioError(errors.Wrap(err, "publishing manifest"))
	}
	return nil
}

func loadManifest(dir string) (manifest, bool, error) {
	path := filepath.Join(dir, manifestFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return manifest{}, false, nil
	}
	if err != nil {
		return manifest{}, false, ioError(err)
	}
	defer f.Close()

	var m manifest
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return manifest{}, false, corruptError(errors.Wrap(err, "decoding manifest"))
	}
	return m, true, nil
}

func buildSegment(docs []Doc, minGram, maxGram int) *segment {
	seg := &segment{
		Docs:        make([]docEntry, 0, len(docs)),
		Postings:    make(map[string][]posting),
		PrefixIndex: make(map[string][]int32),
	}

	var totalTerms int64
	for i, d := range docs {
		ord := int32(i)
		tokens := tokenize(d.Text)
		for pos, tok := range tokens {
			seg.Postings[tok] = append(seg.Postings[tok], posting{DocOrd: ord, Pos: int32(pos)})
			for _, gram := range edgeNGrams(tok, minGram, maxGram) {
				seen := false
				for _, existing := range seg.PrefixIndex[gram] {
					if existing == ord {
						seen = true
						break
					}
				}
				if !seen {
					seg.PrefixIndex[gram] = append(seg.PrefixIndex[gram], ord)
				}
			}
		}
		seg.Docs = append(seg.Docs, docEntry{
			PackedID:  d.ID,
			Type:      d.Type,
			DocID:     d.DocID,
			Text:      d.Text,
			CreatedAt: d.CreatedAt,
			TermCount: int32(len(tokens)),
		})
		totalTerms += int64(len(tokens))
	}

	seg.TotalTerms = totalTerms
	if len(seg.Docs) > 0 {
		seg.AvgDocLength = float64(totalTerms) / float64(len(seg.Docs))
	}
	if seg.AvgDocLength == 0 {
		seg.AvgDocLength = 1 // avoid division by zero scoring empty-text docs
	}
	return seg
}
