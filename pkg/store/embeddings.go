package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	goerrors "errors"
	"math"

	"github.com/pkg/errors"

	"xarchive/pkg/record"
)

// PutEmbedding upserts a single document's vector and content hash. The
// vector is stored as a flat little-endian float32 blob; the vector
// index's own on-disk format is independent of this representation and
// is rebuilt from it (spec.md §4.5).
func (s *Store) PutEmbedding(ctx context.Context, e record.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob := make([]byte, 4*len(e.Components))
	for i, f := range e.Components {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(f))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (doc_type, doc_id, dim, vec_blob, content_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(doc_type, doc_id) DO UPDATE SET
			dim=excluded.dim, vec_blob=excluded.vec_blob, content_hash=excluded.content_hash
	`, string(e.Type), e.DocID, e.Dimension, blob, e.ContentHash)
	if err != nil {
		return corruptionError(errors.Wrapf(err, "storing embedding for %s %s", e.Type, e.DocID))
	}
	return nil
}

// ContentHash returns the stored content hash for (type, id), or "" if no
// embedding has been computed for that document yet. Used by the indexing
// orchestrator to skip re-embedding unchanged records on re-index.
func (s *Store) ContentHash(ctx context.Context, typ record.Type, docID string) (string, error) {
	var hash string
	err := s.db.GetContext(ctx, &hash, `
		SELECT content_hash FROM embeddings WHERE doc_type = ? AND doc_id = ?
	`, string(typ), docID)
	if goerrors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", ioError(err)
	}
	return hash, nil
}

// IterEmbeddings streams every stored embedding, in ascending
// (doc_type, doc_id) order, for the vector index builder.
func (s *Store) IterEmbeddings(ctx context.Context, fn func(record.Embedding) error) error {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT doc_type, doc_id, dim, vec_blob, content_hash FROM embeddings
		ORDER BY doc_type ASC, doc_id ASC
	`)
	if err != nil {
		return ioError(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var (
			docType, docID, hash string
			dim                  int
			blob                 []byte
		)
		if err := rows.Scan(&docType, &docID, &dim, &blob, &hash); err != nil {
			return corruptionError(err)
		}
		if len(blob) != dim*4 {
			return corruptionError(errors.Errorf("embedding %s %s: blob length %d does not match dim %d", docType, docID, len(blob), dim))
		}
		components := make([]float32, dim)
		for i := range components {
			components[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
		}
		e := record.Embedding{
			Type:        record.Type(docType),
			DocID:       docID,
			Dimension:   dim,
			Components:  components,
			ContentHash: hash,
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return ioError(err)
	}
	return nil
}
