package enrich

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"xarchive/pkg/query"
	"xarchive/pkg/record"
	"xarchive/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := store.Open(context.Background(), path, true, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHydrateJoinsAgainstStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := record.Record{Type: record.TypeTweet, Tweet: &record.Tweet{
		ID: "1", CreatedAt: time.Unix(1000, 0).UTC(), FullText: "hello world",
	}}
	if err := s.BulkInsert(ctx, []record.Record{rec}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	e := New(s, nil)
	results, err := e.Hydrate(ctx, []query.Hit{{Type: "tweet", DocID: "1", Score: 0.9}})
	if err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Hydrate() returned %d records, want 1", len(results))
	}
	if results[0].Text != "hello world" || results[0].Score != 0.9 {
		t.Fatalf("Hydrate()[0] = %+v, want hello world / 0.9", results[0])
	}
}

func TestHydrateSkipsMissingTargets(t *testing.T) {
	s := openTestStore(t)
	e := New(s, nil)

	results, err := e.Hydrate(context.Background(), []query.Hit{
		{Type: "tweet", DocID: "nonexistent", Score: 1},
	})
	if err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Hydrate() = %v, want empty for missing hydration target", results)
	}
}

func TestHydrateConversationAnnotatesMatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	msgs := []record.Record{
		{Type: record.TypeDM, DM: &record.DirectMessage{ID: "1", ConversationID: "c1", CreatedAt: time.Unix(1, 0).UTC(), Text: "hi"}},
		{Type: record.TypeDM, DM: &record.DirectMessage{ID: "2", ConversationID: "c1", CreatedAt: time.Unix(2, 0).UTC(), Text: "hello back"}},
	}
	if err := s.BulkInsert(ctx, msgs); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	e := New(s, nil)
	ctxResult, err := e.HydrateConversation(ctx, "c1", map[string]bool{"2": true})
	if err != nil {
		t.Fatalf("HydrateConversation() error = %v", err)
	}
	if len(ctxResult.Messages) != 2 {
		t.Fatalf("HydrateConversation() returned %d messages, want 2", len(ctxResult.Messages))
	}
	if ctxResult.Messages[0].IsMatch {
		t.Fatal("message 1 IsMatch = true, want false")
	}
	if !ctxResult.Messages[1].IsMatch {
		t.Fatal("message 2 IsMatch = false, want true")
	}
}
