package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"xarchive/pkg/record"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path, true, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)
	stats, err := s.Statistics(context.Background(), false)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.TweetCount != 0 {
		t.Fatalf("TweetCount = %d, want 0 on fresh store", stats.TweetCount)
	}
}

func TestOpenMissingFileWithoutCreateFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	if _, err := Open(context.Background(), path, false, nil); err == nil {
		t.Fatal("expected error opening missing store with createIfMissing=false")
	}
}

func TestBulkInsertAndGetRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tw := record.Record{Type: record.TypeTweet, Tweet: &record.Tweet{
		ID:        "1",
		CreatedAt: time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		FullText:  "hello world",
	}}
	if err := s.BulkInsert(ctx, []record.Record{tw}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	got, ok, err := s.GetRecord(ctx, record.TypeTweet, "1")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if !ok {
		t.Fatal("GetRecord() ok = false, want true")
	}
	if got.Tweet.FullText != "hello world" {
		t.Fatalf("FullText = %q, want %q", got.Tweet.FullText, "hello world")
	}
	if !got.Tweet.CreatedAt.Equal(tw.Tweet.CreatedAt) {
		t.Fatalf("CreatedAt = %v, want %v", got.Tweet.CreatedAt, tw.Tweet.CreatedAt)
	}
}

func TestBulkInsertIsIdempotentOnReIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tw := record.Record{Type: record.TypeTweet, Tweet: &record.Tweet{
		ID: "1", CreatedAt: time.Unix(100, 0).UTC(), FullText: "v1",
	}}
	if err := s.BulkInsert(ctx, []record.Record{tw}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	tw.Tweet.FullText = "v2"
	if err := s.BulkInsert(ctx, []record.Record{tw}); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	stats, err := s.Statistics(ctx, false)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.TweetCount != 1 {
		t.Fatalf("TweetCount = %d, want 1 after upsert", stats.TweetCount)
	}

	got, _, err := s.GetRecord(ctx, record.TypeTweet, "1")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if got.Tweet.FullText != "v2" {
		t.Fatalf("FullText = %q, want %q after re-index", got.Tweet.FullText, "v2")
	}
}

func TestGetRecordMissingReturnsNotOk(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.GetRecord(context.Background(), record.TypeTweet, "nonexistent")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if ok {
		t.Fatal("GetRecord() ok = true, want false for missing record")
	}
}

func TestConversationMessagesOrderedByTime(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	msgs := []record.Record{
		{Type: record.TypeDM, DM: &record.DirectMessage{ID: "2", ConversationID: "c1", CreatedAt: time.Unix(200, 0).UTC(), Text: "second"}},
		{Type: record.TypeDM, DM: &record.DirectMessage{ID: "1", ConversationID: "c1", CreatedAt: time.Unix(100, 0).UTC(), Text: "first"}},
	}
	if err := s.BulkInsert(ctx, msgs); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	got, err := s.ConversationMessages(ctx, "c1")
	if err != nil {
		t.Fatalf("ConversationMessages() error = %v", err)
	}
	if len(got) != 2 || got[0].Text != "first" || got[1].Text != "second" {
		t.Fatalf("ConversationMessages() = %+v, want ordered [first, second]", got)
	}
}

func TestIterRecordsVisitsAllInOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"3", "1", "2"} {
		r := record.Record{Type: record.TypeTweet, Tweet: &record.Tweet{ID: id, CreatedAt: time.Unix(1, 0).UTC()}}
		if err := s.BulkInsert(ctx, []record.Record{r}); err != nil {
			t.Fatalf("BulkInsert(%s) error = %v", id, err)
		}
	}

	var seen []string
	err := s.IterRecords(ctx, record.TypeTweet, func(r record.Record) error {
		seen = append(seen, r.Tweet.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("IterRecords() error = %v", err)
	}
	want := []string{"1", "2", "3"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("IterRecords() order = %v, want %v", seen, want)
		}
	}
}

func TestTruncateAllClearsEveryTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := record.Record{Type: record.TypeTweet, Tweet: &record.Tweet{ID: "1", CreatedAt: time.Unix(1, 0).UTC(), FullText: "x"}}
	if err := s.BulkInsert(ctx, []record.Record{r}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}
	if err := s.PutEmbedding(ctx, record.Embedding{Type: record.TypeTweet, DocID: "1", Dimension: 2, Components: []float32{0.1, 0.2}, ContentHash: "abc"}); err != nil {
		t.Fatalf("PutEmbedding() error = %v", err)
	}

	if err := s.TruncateAll(ctx); err != nil {
		t.Fatalf("TruncateAll() error = %v", err)
	}

	stats, err := s.Statistics(ctx, false)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.TweetCount != 0 || stats.EmbeddedCount != 0 {
		t.Fatalf("Statistics() after truncate = %+v, want all zero", stats)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetMeta(ctx, "account_id"); err != nil || ok {
		t.Fatalf("GetMeta() on empty store = (ok=%v, err=%v), want (false, nil)", ok, err)
	}

	if err := s.SetMeta(ctx, "account_id", "12345"); err != nil {
		t.Fatalf("SetMeta() error = %v", err)
	}
	value, ok, err := s.GetMeta(ctx, "account_id")
	if err != nil || !ok || value != "12345" {
		t.Fatalf("GetMeta() = (%q, %v, %v), want (12345, true, nil)", value, ok, err)
	}

	if err := s.SetMeta(ctx, "account_id", "67890"); err != nil {
		t.Fatalf("SetMeta() overwrite error = %v", err)
	}
	value, _, _ = s.GetMeta(ctx, "account_id")
	if value != "67890" {
		t.Fatalf("GetMeta() after overwrite = %q, want 67890", value)
	}
}
