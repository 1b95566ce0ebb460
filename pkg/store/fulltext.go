package store

import (
	"context"
	"strings"
)

// FulltextHit is one match from the degraded substring-scan fallback.
type FulltextHit struct {
	Type      string
	DocID     string
	CreatedAt int64
	Score     float64
}

// SearchFulltext scans the fulltext auxiliary table for rows containing any
// of query's whitespace-separated terms, case-insensitively. It is the
// fallback lexical path used when the keyword index is absent or corrupt;
// its relevance score is the fraction of query terms a row's text contains,
// not BM25. Hits are returned in table scan order, unsorted.
func (s *Store) SearchFulltext(ctx context.Context, query string) ([]FulltextHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryxContext(ctx, `SELECT doc_type, doc_id, text, created_at FROM fulltext`)
	if err != nil {
		return nil, ioError(err)
	}
	defer rows.Close()

	var hits []FulltextHit
	for rows.Next() {
		var docType, docID, text string
		var createdAt int64
		if err := rows.Scan(&docType, &docID, &text, &createdAt); err != nil {
			return nil, corruptionError(err)
		}
		lower := strings.ToLower(text)
		var matched float64
		for _, term := range terms {
			if strings.Contains(lower, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, FulltextHit{Type: docType, DocID: docID, CreatedAt: createdAt, Score: matched / float64(len(terms))})
	}
	if err := rows.Err(); err != nil {
		return nil, ioError(err)
	}
	return hits, nil
}
