package store

import (
	"context"
	"testing"

	"xarchive/pkg/record"
)

func TestPutEmbeddingAndContentHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := record.Embedding{
		Type:        record.TypeTweet,
		DocID:       "1",
		Dimension:   4,
		Components:  []float32{0.1, -0.2, 0.3, -0.4},
		ContentHash: "deadbeef",
	}
	if err := s.PutEmbedding(ctx, e); err != nil {
		t.Fatalf("PutEmbedding() error = %v", err)
	}

	hash, err := s.ContentHash(ctx, record.TypeTweet, "1")
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}
	if hash != "deadbeef" {
		t.Fatalf("ContentHash() = %q, want %q", hash, "deadbeef")
	}
}

func TestContentHashMissingReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	hash, err := s.ContentHash(context.Background(), record.TypeTweet, "nonexistent")
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}
	if hash != "" {
		t.Fatalf("ContentHash() = %q, want empty for missing embedding", hash)
	}
}

func TestIterEmbeddingsRoundTripsVectors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := []record.Embedding{
		{Type: record.TypeLike, DocID: "a", Dimension: 3, Components: []float32{1, 2, 3}, ContentHash: "h1"},
		{Type: record.TypeTweet, DocID: "b", Dimension: 3, Components: []float32{-1.5, 0, 2.25}, ContentHash: "h2"},
	}
	for _, e := range want {
		if err := s.PutEmbedding(ctx, e); err != nil {
			t.Fatalf("PutEmbedding() error = %v", err)
		}
	}

	var got []record.Embedding
	err := s.IterEmbeddings(ctx, func(e record.Embedding) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("IterEmbeddings() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("IterEmbeddings() returned %d embeddings, want 2", len(got))
	}
	// Ordered by (doc_type, doc_id) ascending: "like" < "tweet" lexically.
	if got[0].DocID != "a" || got[1].DocID != "b" {
		t.Fatalf("IterEmbeddings() order = %v, want [a, b]", got)
	}
	for i, c := range got[1].Components {
		if c != want[1].Components[i] {
			t.Fatalf("Components[%d] = %v, want %v", i, c, want[1].Components[i])
		}
	}
}

func TestPutEmbeddingUpsertsOnReEmbed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := record.Embedding{Type: record.TypeTweet, DocID: "1", Dimension: 1, Components: []float32{1}, ContentHash: "h1"}
	if err := s.PutEmbedding(ctx, e); err != nil {
		t.Fatalf("PutEmbedding() error = %v", err)
	}
	e.ContentHash = "h2"
	e.Components = []float32{2}
	if err := s.PutEmbedding(ctx, e); err != nil {
		t.Fatalf("PutEmbedding() second call error = %v", err)
	}

	hash, err := s.ContentHash(ctx, record.TypeTweet, "1")
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}
	if hash != "h2" {
		t.Fatalf("ContentHash() = %q, want h2 after upsert", hash)
	}

	stats, err := s.Statistics(ctx, false)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.EmbeddedCount != 1 {
		t.Fatalf("EmbeddedCount = %d, want 1 (upsert, not duplicate row)", stats.EmbeddedCount)
	}
}
