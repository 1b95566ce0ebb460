// Package indexer composes archive parsing, the relational store, the
// keyword-index writer, the embedder, and the vector-index builder into
// the single top-level indexing operation (spec.md §4.9).
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"xarchive/pkg/archive"
	"xarchive/pkg/config"
	"xarchive/pkg/embedding"
	"xarchive/pkg/keyword"
	"xarchive/pkg/record"
	"xarchive/pkg/store"
	"xarchive/pkg/vectorindex"
	"xarchive/pkg/xlog"
)

const schemaVersion = "1"

// Options controls one indexing run.
type Options struct {
	ArchivePath string
	Force       bool
	// Only, if non-empty, restricts indexing to these record types. Skip
	// always wins where both name the same type.
	Only []record.Type
	Skip []record.Type

	Config config.Config
	Logger *xlog.Logger
}

// Summary reports what one indexing run did, matching the CLI's
// "indexed N; skipped M; warnings W" text output (spec.md §4.9 Propagation
// policy).
type Summary struct {
	Indexed  int
	Skipped  int
	Warnings int
}

// Run executes the full orchestration described in spec.md §4.9 against a
// single archive. It opens (or creates) the relational store and index
// directory named by opts.Config, so repeated runs against the same
// directory accumulate state unless Force is set.
func Run(ctx context.Context, opts Options) (Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = xlog.For("indexer")
	}
	cfg := opts.Config

	if err := ctx.Err(); err != nil {
		return Summary{}, cancelledError()
	}

	st, err := store.Open(ctx, cfg.StorePath, true, xlog.For("store"))
	if err != nil {
		return Summary{}, internalError(errors.Wrap(err, "opening store"))
	}
	defer st.Close()

	vectorPath := filepath.Join(cfg.IndexDir, cfg.VectorIndexFile)

	if opts.Force {
		logger.Info("force reindex: truncating all substrates")
		if err := st.TruncateAll(ctx); err != nil {
			return Summary{}, internalError(errors.Wrap(err, "truncating store"))
		}
		kw, err := keyword.NewWriter(cfg.IndexDir, cfg.EdgeNGramMin, cfg.EdgeNGramMax, cfg.SegmentSize)
		if err != nil {
			return Summary{}, internalError(errors.Wrap(err, "opening keyword index for truncation"))
		}
		if err := kw.Clear(); err != nil {
			return Summary{}, internalError(errors.Wrap(err, "clearing keyword index"))
		}
		if err := os.Remove(vectorPath); err != nil && !os.IsNotExist(err) {
			return Summary{}, internalError(errors.Wrap(err, "removing vector index"))
		}
	}

	if err := ctx.Err(); err != nil {
		return Summary{}, cancelledError()
	}

	result, err := archive.ParseArchive(opts.ArchivePath, archive.Options{Parallelism: cfg.IndexParallelism})
	if err != nil {
		return Summary{}, userError(errors.Wrap(err, "parsing archive"))
	}
	for _, w := range result.Warnings {
		logger.Warn("archive parse warning", "detail", w.String())
	}
	for _, e := range result.Errors {
		logger.Warn("shard parse failure", "error", e)
	}

	records, skipped := filterByType(result.Records, opts.Only, opts.Skip)

	if err := ctx.Err(); err != nil {
		return Summary{}, cancelledError()
	}

	if err := st.BulkInsert(ctx, records); err != nil {
		return Summary{}, internalError(errors.Wrap(err, "inserting records"))
	}

	if err := indexKeyword(ctx, cfg, records); err != nil {
		return Summary{}, err
	}

	if err := ctx.Err(); err != nil {
		return Summary{}, cancelledError()
	}

	embedded, err := embedChanged(ctx, st, records, logger)
	if err != nil {
		return Summary{}, err
	}
	logger.Debug("embeddings refreshed", "count", embedded)

	if err := ctx.Err(); err != nil {
		return Summary{}, cancelledError()
	}

	if err := rebuildVectorIndex(ctx, st, vectorPath, cfg.EmbeddingDimension); err != nil {
		return Summary{}, err
	}

	if err := writeMetadata(ctx, st, result.Manifest, records); err != nil {
		return Summary{}, err
	}

	return Summary{
		Indexed:  len(records),
		Skipped:  skipped + countWarnings(result.Warnings),
		Warnings: countWarnings(result.Warnings) + len(result.Errors),
	}, nil
}

func countWarnings(warnings []archive.Warning) int { return len(warnings) }

func filterByType(records []record.Record, only, skip []record.Type) ([]record.Record, int) {
	onlySet := typeSet(only)
	skipSet := typeSet(skip)
	if len(onlySet) == 0 && len(skipSet) == 0 {
		return records, 0
	}

	out := make([]record.Record, 0, len(records))
	skipped := 0
	for _, r := range records {
		if skipSet[r.Type] {
			skipped++
			continue
		}
		if len(onlySet) > 0 && !onlySet[r.Type] {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

func typeSet(types []record.Type) map[record.Type]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[record.Type]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// indexKeyword feeds every indexable record into the keyword-index
// writer, committing every cfg.SegmentSize docs (handled internally by
// the writer's auto-flush) and once more at the end.
func indexKeyword(ctx context.Context, cfg config.Config, records []record.Record) error {
	w, err := keyword.NewWriter(cfg.IndexDir, cfg.EdgeNGramMin, cfg.EdgeNGramMax, cfg.SegmentSize)
	if err != nil {
		return internalError(errors.Wrap(err, "opening keyword writer"))
	}
	for i, r := range records {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return cancelledError()
			}
		}
		text := r.IndexableText()
		if text == "" {
			continue
		}
		w.AddDoc(keyword.Doc{
			Type:      string(r.Type),
			DocID:     r.ID(),
			Text:      text,
			CreatedAt: r.Timestamp().Unix(),
		})
	}
	if err := w.Commit(); err != nil {
		return internalError(errors.Wrap(err, "committing keyword index"))
	}
	return nil
}

// embedChanged canonicalises and embeds every record with non-trivial
// text whose content hash differs from what is already stored, skipping
// records unchanged since the last run (spec.md §4.9 step 5).
func embedChanged(ctx context.Context, st *store.Store, records []record.Record, logger *xlog.Logger) (int, error) {
	embedded := 0
	for i, r := range records {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return embedded, cancelledError()
			}
		}
		text := r.EmbeddableText()
		if text == "" {
			continue
		}
		vec, contentHash, ok := embedding.Embed(r.Type, text)
		if !ok {
			continue
		}
		existing, err := st.ContentHash(ctx, r.Type, r.ID())
		if err != nil {
			return embedded, internalError(errors.Wrap(err, "looking up content hash"))
		}
		if existing == contentHash {
			continue
		}
		err = st.PutEmbedding(ctx, record.Embedding{
			Type:        r.Type,
			DocID:       r.ID(),
			Dimension:   len(vec),
			Components:  vec,
			ContentHash: contentHash,
		})
		if err != nil {
			return embedded, internalError(errors.Wrap(err, "storing embedding"))
		}
		embedded++
	}
	logger.Debug("embedding pass complete", "candidates", len(records), "embedded", embedded)
	return embedded, nil
}

func rebuildVectorIndex(ctx context.Context, st *store.Store, path string, dimension int) error {
	var out []vectorindex.VectorRecord
	err := st.IterEmbeddings(ctx, func(e record.Embedding) error {
		out = append(out, vectorindex.VectorRecord{Type: e.Type, DocID: e.DocID, Vector: e.Components})
		return nil
	})
	if err != nil {
		return internalError(errors.Wrap(err, "reading embeddings"))
	}
	if err := vectorindex.Write(path, out, dimension); err != nil {
		return internalError(errors.Wrap(err, "writing vector index"))
	}
	return nil
}

func writeMetadata(ctx context.Context, st *store.Store, manifest record.ArchiveManifest, records []record.Record) error {
	counts := map[record.Type]int{}
	for _, r := range records {
		counts[r.Type]++
	}

	entries := map[string]string{
		"schema_version":      schemaVersion,
		"archive_fingerprint": archiveFingerprint(manifest),
		"indexed_at":          time.Now().UTC().Format(time.RFC3339),
		"count.tweet":         strconv.Itoa(counts[record.TypeTweet]),
		"count.like":          strconv.Itoa(counts[record.TypeLike]),
		"count.dm":            strconv.Itoa(counts[record.TypeDM]),
		"count.grok":          strconv.Itoa(counts[record.TypeGrok]),
	}
	for key, value := range entries {
		if err := st.SetMeta(ctx, key, value); err != nil {
			return internalError(errors.Wrapf(err, "writing meta key %s", key))
		}
	}
	return nil
}

// archiveFingerprint identifies the source archive deterministically from
// its manifest, so a re-index of the same export is detectable without
// hashing every shard file.
func archiveFingerprint(m record.ArchiveManifest) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", m.AccountID, m.GeneratedAt.Unix())))
	return hex.EncodeToString(sum[:])
}
