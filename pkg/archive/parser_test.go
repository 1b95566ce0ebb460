package archive

import (
	"os"
	"path/filepath"
	"testing"

	"xarchive/pkg/record"
)

func writeShard(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data", name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseShardTweet(t *testing.T) {
	body := `window.YTD.tweets.part0 = [
  {"tweet": {"id_str": "1", "created_at": "Wed Jan 08 12:00:00 +0000 2025", "full_text": "Hello Rust", "favorite_count": "3", "retweet_count": "1"}}
]`
	res, err := ParseShard("tweets.js", "tweets.js", []byte(body))
	if err != nil {
		t.Fatalf("ParseShard: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	r := res.Records[0]
	if r.Type != record.TypeTweet || r.ID() != "1" || r.IndexableText() != "Hello Rust" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.Tweet.FavoriteCount != 3 || r.Tweet.RetweetCount != 1 {
		t.Fatalf("unexpected counts: %+v", r.Tweet)
	}
}

func TestParseShardToleratesWhitespaceAroundPrefix(t *testing.T) {
	body := "window.YTD.tweets.part1   =\r\n  [\n  {\"tweet\": {\"id_str\": \"2\", \"created_at\": \"2025-01-08T12:00:00.000Z\", \"full_text\": \"hi\"}}\n];"
	res, err := ParseShard("tweets-part1.js", "tweets-part1.js", []byte(body))
	if err != nil {
		t.Fatalf("ParseShard: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
}

func TestParseShardBadEnvelopeIsWarningNotFatal(t *testing.T) {
	body := `window.YTD.tweets.part0 = [
  {"tweet": {"id_str": "1", "created_at": "bad-date", "full_text": "ok"}},
  {"notATweet": true}
]`
	res, err := ParseShard("tweets.js", "tweets.js", []byte(body))
	if err != nil {
		t.Fatalf("ParseShard should not be fatal: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1 (bad envelope skipped)", len(res.Records))
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("got %d warnings, want 2 (bad date + bad envelope)", len(res.Warnings))
	}
}

func TestParseShardMalformedJSONIsFatal(t *testing.T) {
	body := `window.YTD.tweets.part0 = [{"tweet": {`
	_, err := ParseShard("tweets.js", "tweets.js", []byte(body))
	if err == nil {
		t.Fatal("expected a fatal error for malformed JSON")
	}
	var ae *Error
	if e, ok := err.(*Error); !ok || e.Kind != KindMalformedJSON {
		t.Fatalf("got %v (%v), want KindMalformedJSON", err, ae)
	}
}

func TestParseShardUnknownFormat(t *testing.T) {
	_, err := ParseShard("odd.js", "odd.js", []byte("not json at all"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if e, ok := err.(*Error); !ok || e.Kind != KindUnknownFormat {
		t.Fatalf("got %v, want KindUnknownFormat", err)
	}
}

func TestParseArchiveDirectMessages(t *testing.T) {
	dir := t.TempDir()
	body := `window.YTD.direct_messages.part0 = [
  {"dmConversation": {"conversationId": "c1-c2", "messages": [
    {"messageCreate": {"id": "m1", "createdAt": "2025-01-08T12:00:00.000Z", "senderId": "1", "recipientId": "2", "text": "Hello Bob"}},
    {"messageCreate": {"id": "m2", "createdAt": "2025-01-08T12:01:00.000Z", "senderId": "2", "recipientId": "1", "text": "Hi Alice"}}
  ]}}
]`
	writeShard(t, dir, "direct-messages.js", body)

	res, err := ParseArchive(dir, Options{})
	if err != nil {
		t.Fatalf("ParseArchive: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	for _, r := range res.Records {
		if r.DM.ConversationID != "c1-c2" {
			t.Fatalf("unexpected conversation id: %+v", r.DM)
		}
	}
}

func TestParseArchiveSkipsUnknownShardsSilently(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, "profile.js", "window.YTD.profile.part0 = []")
	res, err := ParseArchive(dir, Options{})
	if err != nil {
		t.Fatalf("ParseArchive: %v", err)
	}
	if len(res.Records) != 0 || len(res.Errors) != 0 {
		t.Fatalf("expected unknown shards to be silently ignored, got %+v", res)
	}
}

func TestParseArchiveMissingDataDir(t *testing.T) {
	dir := t.TempDir()
	_, err := ParseArchive(dir, Options{})
	if err == nil {
		t.Fatal("expected an error for a missing data/ directory")
	}
}

func TestParseArchiveIsDeterministicAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	body := `window.YTD.tweets.part0 = [
  {"tweet": {"id_str": "42", "created_at": "2025-01-08T12:00:00.000Z", "full_text": "round trip"}}
]`
	writeShard(t, dir, "tweets.js", body)

	first, err := ParseArchive(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseArchive(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Records) != len(second.Records) {
		t.Fatalf("non-deterministic record count: %d vs %d", len(first.Records), len(second.Records))
	}
	for i := range first.Records {
		a, b := first.Records[i], second.Records[i]
		if a.ID() != b.ID() || !a.Timestamp().Equal(b.Timestamp()) || a.IndexableText() != b.IndexableText() {
			t.Fatalf("record %d differs across runs: %+v vs %+v", i, a, b)
		}
	}
}
