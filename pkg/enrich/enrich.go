// Package enrich hydrates a ranked list of (doc_type, doc_id) pairs into
// display records by joining against the relational store, optionally
// expanding direct-message hits into their full conversation context.
package enrich

import (
	"context"
	"encoding/json"
	"time"

	"xarchive/pkg/query"
	"xarchive/pkg/record"
	"xarchive/pkg/store"
	"xarchive/pkg/xlog"
)

// DisplayRecord is the JSON shape returned to search callers.
type DisplayRecord struct {
	DocType   string          `json:"doc_type"`
	ID        string          `json:"id"`
	CreatedAt string          `json:"created_at"`
	Text      string          `json:"text"`
	Score     float64         `json:"score"`
	Metadata  json.RawMessage `json:"metadata"`
}

// ConversationContext wraps a matching DM hit with its full conversation.
type ConversationContext struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []AnnotatedDM `json:"messages"`
}

// AnnotatedDM is one message in a conversation, flagged for whether it
// was itself a search hit.
type AnnotatedDM struct {
	DisplayRecord
	IsMatch bool `json:"is_match"`
}

// Enricher hydrates ranked hits via the relational store.
type Enricher struct {
	store  *store.Store
	logger *xlog.Logger
}

func New(st *store.Store, logger *xlog.Logger) *Enricher {
	if logger == nil {
		logger = xlog.For("enrich")
	}
	return &Enricher{store: st, logger: logger}
}

// Hydrate resolves every hit into a DisplayRecord, in the input's order.
// A hit whose (type, doc_id) is absent from the store is logged and
// skipped, never surfaced as an error — the caller's result count may be
// shorter than the hit list it was given.
func (e *Enricher) Hydrate(ctx context.Context, hits []query.Hit) ([]DisplayRecord, error) {
	out := make([]DisplayRecord, 0, len(hits))
	for i, h := range hits {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		disp, ok, err := e.hydrateOne(ctx, h)
		if err != nil {
			return nil, err
		}
		if !ok {
			e.logger.Warn("hydration target missing from store", "type", h.Type, "doc_id", h.DocID)
			continue
		}
		out = append(out, disp)
	}
	return out, nil
}

func (e *Enricher) hydrateOne(ctx context.Context, h query.Hit) (DisplayRecord, bool, error) {
	rec, ok, err := e.store.GetRecord(ctx, record.Type(h.Type), h.DocID)
	if err != nil {
		return DisplayRecord{}, false, err
	}
	if !ok {
		return DisplayRecord{}, false, nil
	}
	return toDisplayRecord(rec, h.Score)
}

func toDisplayRecord(rec record.Record, score float64) (DisplayRecord, bool, error) {
	meta, err := rec.StoredMetadata()
	if err != nil {
		return DisplayRecord{}, false, err
	}
	return DisplayRecord{
		DocType:   string(rec.Type),
		ID:        rec.ID(),
		CreatedAt: formatTime(rec.Timestamp()),
		Text:      rec.IndexableText(),
		Score:     score,
		Metadata:  meta,
	}, true, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// HydrateConversation loads every message in the DM conversation
// conversationID, ordered by created_at, and marks which of them are
// present in matchedDocIDs.
func (e *Enricher) HydrateConversation(ctx context.Context, conversationID string, matchedDocIDs map[string]bool) (ConversationContext, error) {
	messages, err := e.store.ConversationMessages(ctx, conversationID)
	if err != nil {
		return ConversationContext{}, err
	}

	out := ConversationContext{ConversationID: conversationID, Messages: make([]AnnotatedDM, 0, len(messages))}
	for _, m := range messages {
		rec := record.Record{Type: record.TypeDM, DM: &m}
		disp, _, err := toDisplayRecord(rec, 0)
		if err != nil {
			return ConversationContext{}, err
		}
		out.Messages = append(out.Messages, AnnotatedDM{DisplayRecord: disp, IsMatch: matchedDocIDs[m.ID]})
	}
	return out, nil
}
