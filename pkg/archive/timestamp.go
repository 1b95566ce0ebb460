package archive

import (
	"strconv"
	"strings"
	"time"
)

// legacyTwitterLayouts and isoLayouts are tried in order. This mirrors the
// teacher's ParseTwitterTimestamp (pkg/dataprocessing/x/x.go), extended
// with the additional ISO variants the spec requires tolerated.
var legacyTwitterLayouts = []string{
	"Mon Jan 02 15:04:05 -0700 2006",
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.000-07:00",
}

// parseTimestamp accepts both the legacy X export form
// ("Wed Jan 08 12:00:00 +0000 2025") and ISO-8601. It returns ok=false,
// never an error, because a bad timestamp is a per-record warning, not a
// shard-aborting failure (spec.md §4.1).
func parseTimestamp(s string) (t time.Time, ok bool) {
	for _, layout := range legacyTwitterLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), true
		}
	}
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseCount parses a numeric string field (favorite_count, retweet_count).
// An unparseable value is zero, not an error, per spec.md §4.1 step 5.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
