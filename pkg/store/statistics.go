package store

import (
	"context"
	"database/sql"
	"errors"
)

// TemporalBucket is one month's record count in the histogram returned by
// Statistics, summed across every record type.
type TemporalBucket struct {
	Month string `db:"month"`
	Count int64  `db:"count"`
}

// Engagement aggregates favorite/retweet counts across the tweets table.
// Likes, direct messages, and grok messages carry no engagement signal of
// their own, so the aggregate is tweet-only.
type Engagement struct {
	TotalFavorites   int64
	TotalRetweets    int64
	AverageFavorites float64
	AverageRetweets  float64
}

// Statistics summarizes the store's current contents.
type Statistics struct {
	TweetCount    int64
	LikeCount     int64
	DMCount       int64
	GrokCount     int64
	EmbeddedCount int64

	// Histogram buckets every record's created_at by calendar month
	// ("2023-04"), across all four record types combined.
	Histogram []TemporalBucket

	// Engagement is the favorite/retweet aggregate over tweets.
	Engagement Engagement

	// Detailed is populated only when Statistics(ctx, true) is called; it
	// breaks EmbeddedCount down by document type.
	Detailed map[string]int64
}

// Statistics computes row counts of the store's record and embedding
// tables (the keyword and vector indexes are not consulted), a monthly temporal
// histogram, and engagement aggregates. When detailed is true it
// additionally groups the embeddings table by doc_type.
func (s *Store) Statistics(ctx context.Context, detailed bool) (Statistics, error) {
	var stats Statistics

	counts := []struct {
		table string
		dest  *int64
	}{
		{"tweets", &stats.TweetCount},
		{"likes", &stats.LikeCount},
		{"direct_messages", &stats.DMCount},
		{"grok_messages", &stats.GrokCount},
		{"embeddings", &stats.EmbeddedCount},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dest, "SELECT COUNT(*) FROM "+c.table); err != nil {
			return Statistics{}, ioError(err)
		}
	}

	histogram, err := s.temporalHistogram(ctx)
	if err != nil {
		return Statistics{}, err
	}
	stats.Histogram = histogram

	engagement, err := s.engagementAggregate(ctx)
	if err != nil {
		return Statistics{}, err
	}
	stats.Engagement = engagement

	if detailed {
		rows, err := s.db.QueryxContext(ctx, `
			SELECT doc_type, COUNT(*) FROM embeddings GROUP BY doc_type
		`)
		if err != nil {
			return Statistics{}, ioError(err)
		}
		defer rows.Close()
		stats.Detailed = make(map[string]int64)
		for rows.Next() {
			var docType string
			var count int64
			if err := rows.Scan(&docType, &count); err != nil {
				return Statistics{}, corruptionError(err)
			}
			stats.Detailed[docType] = count
		}
		if err := rows.Err(); err != nil {
			return Statistics{}, ioError(err)
		}
	}

	return stats, nil
}

// temporalHistogram buckets created_at across every substrate by calendar
// month, sorted ascending.
func (s *Store) temporalHistogram(ctx context.Context) ([]TemporalBucket, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT strftime('%Y-%m', created_at, 'unixepoch') AS month, COUNT(*) AS count FROM (
			SELECT created_at FROM tweets
			UNION ALL
			SELECT created_at FROM likes
			UNION ALL
			SELECT created_at FROM direct_messages
			UNION ALL
			SELECT created_at FROM grok_messages
		)
		GROUP BY month
		ORDER BY month ASC
	`)
	if err != nil {
		return nil, ioError(err)
	}
	defer rows.Close()

	var buckets []TemporalBucket
	for rows.Next() {
		var b TemporalBucket
		if err := rows.StructScan(&b); err != nil {
			return nil, corruptionError(err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError(err)
	}
	return buckets, nil
}

// engagementAggregate totals and averages favorite/retweet counts over
// tweets. Averages are 0 when there are no tweets, not NaN.
func (s *Store) engagementAggregate(ctx context.Context) (Engagement, error) {
	var row struct {
		TotalFavorites int64   `db:"total_favorites"`
		TotalRetweets  int64   `db:"total_retweets"`
		AvgFavorites   float64 `db:"avg_favorites"`
		AvgRetweets    float64 `db:"avg_retweets"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT
			COALESCE(SUM(favorite_count), 0) AS total_favorites,
			COALESCE(SUM(retweet_count), 0) AS total_retweets,
			COALESCE(AVG(favorite_count), 0) AS avg_favorites,
			COALESCE(AVG(retweet_count), 0) AS avg_retweets
		FROM tweets
	`)
	if err != nil {
		return Engagement{}, ioError(err)
	}
	return Engagement{
		TotalFavorites:   row.TotalFavorites,
		TotalRetweets:    row.TotalRetweets,
		AverageFavorites: row.AvgFavorites,
		AverageRetweets:  row.AvgRetweets,
	}, nil
}

// SetMeta persists a key/value pair in the meta table (e.g. the archive
// manifest's account id and generation timestamp).
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, key, value)
	if err != nil {
		return corruptionError(err)
	}
	return nil
}

// GetMeta returns the value for key, or "" with ok=false if unset.
func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ioError(err)
	}
	return value, true, nil
}
