package keyword

// Doc is a single document submitted to the writer. ID packs (type,
// doc_id) into one opaque token, the key the writer deduplicates staged
// documents on.
type Doc struct {
	ID        string // "<type>:<doc_id>"
	Type      string
	DocID     string
	Text      string
	CreatedAt int64 // UTC seconds since epoch
}

func packID(docType, docID string) string {
	return docType + ":" + docID
}

// posting is one occurrence of a term in a document: the document's
// ordinal in the segment's doc table, and the term's position within
// the document's token stream (for phrase queries).
type posting struct {
	DocOrd int32
	Pos    int32
}

// docEntry is a segment-local document record.
type docEntry struct {
	PackedID  string
	Type      string
	DocID     string
	Text      string
	CreatedAt int64
	TermCount int32 // token count, for BM25 length normalization
}

// segment is one flushed, immutable unit of the index. The writer
// accumulates docs in memory and flushes into segments of bounded size;
// the reader scores each segment on its own statistics and merges the
// resulting hits at query time.
type segment struct {
	Docs         []docEntry
	Postings     map[string][]posting // term -> postings, sorted by docOrd
	PrefixIndex  map[string][]int32   // prefix token -> doc ordinals containing it
	TotalTerms   int64
	AvgDocLength float64
}
