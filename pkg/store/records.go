package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	"xarchive/pkg/record"
)

func unixToTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// tweetRow, likeRow, dmRow and grokRow mirror the migration's column sets.
// sqlx binds them by name, so field order does not matter.
type tweetRow struct {
	ID                string `db:"id"`
	CreatedAt         int64  `db:"created_at"`
	FullText          string `db:"full_text"`
	FavoriteCount     int64  `db:"favorite_count"`
	RetweetCount      int64  `db:"retweet_count"`
	InReplyToStatusID string `db:"in_reply_to_status_id"`
	Lang              string `db:"lang"`
	Metadata          string `db:"metadata"`
}

type likeRow struct {
	TweetID     string `db:"tweet_id"`
	CreatedAt   int64  `db:"created_at"`
	FullText    string `db:"full_text"`
	ExpandedURL string `db:"expanded_url"`
	Metadata    string `db:"metadata"`
}

type dmRow struct {
	ID             string `db:"id"`
	CreatedAt      int64  `db:"created_at"`
	ConversationID string `db:"conversation_id"`
	SenderID       string `db:"sender_id"`
	RecipientID    string `db:"recipient_id"`
	Text           string `db:"text"`
	Metadata       string `db:"metadata"`
}

type grokRow struct {
	ID        string `db:"id"`
	CreatedAt int64  `db:"created_at"`
	ChatID    string `db:"chat_id"`
	Sender    string `db:"sender"`
	Message   string `db:"message"`
	Metadata  string `db:"metadata"`
}

// BulkInsert writes a batch of records into their per-variant tables plus
// the fulltext auxiliary table, all within one transaction. Rows are
// upserted (insert-or-replace) keyed on the record's natural ID, so
// re-indexing the same archive is idempotent.
func (s *Store) BulkInsert(ctx context.Context, records []record.Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ioError(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		if err := insertOne(ctx, tx, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return ioError(err)
	}
	return nil
}

func insertOne(ctx context.Context, tx *sqlx.Tx, r record.Record) error {
	meta, err := r.StoredMetadata()
	if err != nil {
		return corruptionError(pkgerrors.Wrapf(err, "marshalling metadata for %s %s", r.Type, r.ID()))
	}

	switch r.Type {
	case record.TypeTweet:
		row := tweetRow{
			ID:                r.Tweet.ID,
			CreatedAt:         r.Tweet.CreatedAt.Unix(),
			FullText:          r.Tweet.FullText,
			FavoriteCount:     r.Tweet.FavoriteCount,
			RetweetCount:      r.Tweet.RetweetCount,
			InReplyToStatusID: r.Tweet.InReplyToStatusID,
			Lang:              r.Tweet.Lang,
			Metadata:          string(meta),
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO tweets (id, created_at, full_text, favorite_count, retweet_count, in_reply_to_status_id, lang, metadata)
			VALUES (:id, :created_at, :full_text, :favorite_count, :retweet_count, :in_reply_to_status_id, :lang, :metadata)
			ON CONFLICT(id) DO UPDATE SET
				created_at=excluded.created_at, full_text=excluded.full_text,
				favorite_count=excluded.favorite_count, retweet_count=excluded.retweet_count,
				in_reply_to_status_id=excluded.in_reply_to_status_id, lang=excluded.lang, metadata=excluded.metadata
		`, row)
	case record.TypeLike:
		row := likeRow{
			TweetID:     r.Like.TweetID,
			CreatedAt:   r.Like.CreatedAt.Unix(),
			FullText:    r.Like.FullText,
			ExpandedURL: r.Like.ExpandedURL,
			Metadata:    string(meta),
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO likes (tweet_id, created_at, full_text, expanded_url, metadata)
			VALUES (:tweet_id, :created_at, :full_text, :expanded_url, :metadata)
			ON CONFLICT(tweet_id) DO UPDATE SET
				created_at=excluded.created_at, full_text=excluded.full_text,
				expanded_url=excluded.expanded_url, metadata=excluded.metadata
		`, row)
	case record.TypeDM:
		row := dmRow{
			ID:             r.DM.ID,
			CreatedAt:      r.DM.CreatedAt.Unix(),
			ConversationID: r.DM.ConversationID,
			SenderID:       r.DM.SenderID,
			RecipientID:    r.DM.RecipientID,
			Text:           r.DM.Text,
			Metadata:       string(meta),
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO direct_messages (id, created_at, conversation_id, sender_id, recipient_id, text, metadata)
			VALUES (:id, :created_at, :conversation_id, :sender_id, :recipient_id, :text, :metadata)
			ON CONFLICT(id) DO UPDATE SET
				created_at=excluded.created_at, conversation_id=excluded.conversation_id,
				sender_id=excluded.sender_id, recipient_id=excluded.recipient_id,
				text=excluded.text, metadata=excluded.metadata
		`, row)
	case record.TypeGrok:
		row := grokRow{
			ID:        r.Grok.ID,
			CreatedAt: r.Grok.CreatedAt.Unix(),
			ChatID:    r.Grok.ChatID,
			Sender:    string(r.Grok.Sender),
			Message:   r.Grok.Message,
			Metadata:  string(meta),
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO grok_messages (id, created_at, chat_id, sender, message, metadata)
			VALUES (:id, :created_at, :chat_id, :sender, :message, :metadata)
			ON CONFLICT(id) DO UPDATE SET
				created_at=excluded.created_at, chat_id=excluded.chat_id,
				sender=excluded.sender, message=excluded.message, metadata=excluded.metadata
		`, row)
	default:
		return corruptionError(fmt.Errorf("unknown record type %q", r.Type))
	}
	if err != nil {
		return corruptionError(pkgerrors.Wrapf(err, "inserting %s %s", r.Type, r.ID()))
	}

	if text := r.IndexableText(); text != "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fulltext (doc_type, doc_id, text, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(doc_type, doc_id) DO UPDATE SET text=excluded.text, created_at=excluded.created_at
		`, string(r.Type), r.ID(), text, r.Timestamp().Unix())
		if err != nil {
			return corruptionError(pkgerrors.Wrapf(err, "indexing fulltext for %s %s", r.Type, r.ID()))
		}
	}
	return nil
}

// GetRecord fetches a single record by (type, id). It returns
// (record.Record{}, false, nil) when no such row exists.
func (s *Store) GetRecord(ctx context.Context, typ record.Type, id string) (record.Record, bool, error) {
	switch typ {
	case record.TypeTweet:
		var row tweetRow
		err := s.db.GetContext(ctx, &row, `SELECT * FROM tweets WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return record.Record{}, false, nil
		}
		if err != nil {
			return record.Record{}, false, ioError(err)
		}
		return record.Record{Type: record.TypeTweet, Tweet: tweetFromRow(row)}, true, nil
	case record.TypeLike:
		var row likeRow
		err := s.db.GetContext(ctx, &row, `SELECT * FROM likes WHERE tweet_id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return record.Record{}, false, nil
		}
		if err != nil {
			return record.Record{}, false, ioError(err)
		}
		return record.Record{Type: record.TypeLike, Like: likeFromRow(row)}, true, nil
	case record.TypeDM:
		var row dmRow
		err := s.db.GetContext(ctx, &row, `SELECT * FROM direct_messages WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return record.Record{}, false, nil
		}
		if err != nil {
			return record.Record{}, false, ioError(err)
		}
		return record.Record{Type: record.TypeDM, DM: dmFromRow(row)}, true, nil
	case record.TypeGrok:
		var row grokRow
		err := s.db.GetContext(ctx, &row, `SELECT * FROM grok_messages WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return record.Record{}, false, nil
		}
		if err != nil {
			return record.Record{}, false, ioError(err)
		}
		return record.Record{Type: record.TypeGrok, Grok: grokFromRow(row)}, true, nil
	default:
		return record.Record{}, false, corruptionError(fmt.Errorf("unknown record type %q", typ))
	}
}

// ConversationMessages returns every DirectMessage sharing conversationID,
// ordered by ascending created_at, for DM result-context expansion.
func (s *Store) ConversationMessages(ctx context.Context, conversationID string) ([]record.DirectMessage, error) {
	var rows []dmRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM direct_messages WHERE conversation_id = ? ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, ioError(err)
	}
	out := make([]record.DirectMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, *dmFromRow(row))
	}
	return out, nil
}

// IterRecords streams every record of the given type in ascending id
// order, invoking fn for each. Iteration stops at the first error fn
// returns or the first context cancellation.
func (s *Store) IterRecords(ctx context.Context, typ record.Type, fn func(record.Record) error) error {
	switch typ {
	case record.TypeTweet:
		rows, err := s.db.QueryxContext(ctx, `SELECT * FROM tweets ORDER BY id ASC`)
		if err != nil {
			return ioError(err)
		}
		defer rows.Close()
		for rows.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var row tweetRow
			if err := rows.StructScan(&row); err != nil {
				return corruptionError(err)
			}
			if err := fn(record.Record{Type: record.TypeTweet, Tweet: tweetFromRow(row)}); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return ioError(err)
		}
		return nil
	case record.TypeLike:
		rows, err := s.db.QueryxContext(ctx, `SELECT * FROM likes ORDER BY tweet_id ASC`)
		if err != nil {
			return ioError(err)
		}
		defer rows.Close()
		for rows.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var row likeRow
			if err := rows.StructScan(&row); err != nil {
				return corruptionError(err)
			}
			if err := fn(record.Record{Type: record.TypeLike, Like: likeFromRow(row)}); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return ioError(err)
		}
		return nil
	case record.TypeDM:
		rows, err := s.db.QueryxContext(ctx, `SELECT * FROM direct_messages ORDER BY id ASC`)
		if err != nil {
			return ioError(err)
		}
		defer rows.Close()
		for rows.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var row dmRow
			if err := rows.StructScan(&row); err != nil {
				return corruptionError(err)
			}
			if err := fn(record.Record{Type: record.TypeDM, DM: dmFromRow(row)}); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return ioError(err)
		}
		return nil
	case record.TypeGrok:
		rows, err := s.db.QueryxContext(ctx, `SELECT * FROM grok_messages ORDER BY id ASC`)
		if err != nil {
			return ioError(err)
		}
		defer rows.Close()
		for rows.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var row grokRow
			if err := rows.StructScan(&row); err != nil {
				return corruptionError(err)
			}
			if err := fn(record.Record{Type: record.TypeGrok, Grok: grokFromRow(row)}); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return ioError(err)
		}
		return nil
	default:
		return corruptionError(fmt.Errorf("unknown record type %q", typ))
	}
}

func tweetFromRow(row tweetRow) *record.Tweet {
	t := &record.Tweet{
		ID:                row.ID,
		FullText:          row.FullText,
		FavoriteCount:     row.FavoriteCount,
		RetweetCount:      row.RetweetCount,
		InReplyToStatusID: row.InReplyToStatusID,
		Lang:              row.Lang,
	}
	t.CreatedAt = unixToTime(row.CreatedAt)
	return t
}

func likeFromRow(row likeRow) *record.Like {
	return &record.Like{
		TweetID:     row.TweetID,
		CreatedAt:   unixToTime(row.CreatedAt),
		FullText:    row.FullText,
		ExpandedURL: row.ExpandedURL,
	}
}

func dmFromRow(row dmRow) *record.DirectMessage {
	return &record.DirectMessage{
		ID:             row.ID,
		CreatedAt:      unixToTime(row.CreatedAt),
		ConversationID: row.ConversationID,
		SenderID:       row.SenderID,
		RecipientID:    row.RecipientID,
		Text:           row.Text,
	}
}

func grokFromRow(row grokRow) *record.GrokMessage {
	return &record.GrokMessage{
		ID:        row.ID,
		CreatedAt: unixToTime(row.CreatedAt),
		ChatID:    row.ChatID,
		Sender:    record.Sender(row.Sender),
		Message:   row.Message,
	}
}
