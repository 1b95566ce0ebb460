// Package archive parses an X/Twitter data export directory into the
// uniform record.Record model. The export wraps JSON payloads in a
// "window.YTD.<type>.partN = " JavaScript assignment; framed.go isolates
// that framing from the JSON body so the rest of this package only ever
// sees JSON.
package archive

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"xarchive/pkg/record"
)

// Warning is a non-fatal issue encountered while parsing one envelope
// within an otherwise-valid shard. Shard parsing continues past warnings;
// only the affected envelope is dropped.
type Warning struct {
	Path    string
	Index   int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s[%d]: %s", w.Path, w.Index, w.Message)
}

// ShardResult is the outcome of parsing a single shard file.
type ShardResult struct {
	Path     string
	Records  []record.Record
	Warnings []Warning
}

// ParseShard parses one shard's raw bytes. fileName is used only to
// classify the shard's record type (tweets.js, like.js, ...); it is not
// interpreted as a path. A fatal error (bad UTF-8, syntactically invalid
// JSON, or an unrecognized shard) aborts this shard only — callers
// parsing multiple shards must not let one fatal error stop the others.
func ParseShard(path, fileName string, content []byte) (ShardResult, error) {
	result := ShardResult{Path: path}

	stripped := stripBOM(content)
	if !utf8.Valid(stripped) {
		return result, unreadableShard(path, fmt.Errorf("not valid UTF-8"))
	}

	kind := classifyShard(fileName)
	if kind == shardUnknown {
		return result, unknownFormat(path)
	}
	if kind == shardManifest {
		// Manifests are parsed separately via ParseManifest; a bare
		// ParseShard call on one yields no records and no error.
		return result, nil
	}

	body, err := frameJSON(path, content)
	if err != nil {
		return result, err
	}

	raw, err := decodeArray(body)
	if err != nil {
		return result, malformedJSON(path, 0, err)
	}

	for i, elem := range raw {
		rec, warn, err := parseEnvelope(kind, elem)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{Path: path, Index: i, Message: err.Error()})
			continue
		}
		if warn != "" {
			result.Warnings = append(result.Warnings, Warning{Path: path, Index: i, Message: warn})
		}
		result.Records = append(result.Records, rec...)
	}

	return result, nil
}

// parseEnvelope decodes a single envelope element into zero or more
// records (a dmConversation envelope fans out into one record per
// message). warn is a non-empty message describing a degraded-but-still
// indexed record (e.g. an unparseable timestamp).
func parseEnvelope(kind shardType, elem json.RawMessage) ([]record.Record, string, error) {
	switch kind {
	case shardTweet:
		return parseTweetEnvelope(elem)
	case shardLike:
		return parseLikeEnvelope(elem)
	case shardDM:
		return parseDMEnvelope(elem)
	case shardGrok:
		return parseGrokEnvelope(elem)
	default:
		return nil, "", fmt.Errorf("unsupported shard kind")
	}
}

func parseTweetEnvelope(elem json.RawMessage) ([]record.Record, string, error) {
	var env tweetEnvelope
	if err := json.Unmarshal(elem, &env); err != nil {
		return nil, "", fmt.Errorf("missing or malformed tweet payload: %w", err)
	}
	p := env.Tweet
	if p.IDStr == "" {
		return nil, "", fmt.Errorf("tweet envelope missing id_str")
	}

	ts, ok := parseTimestamp(p.CreatedAt)
	warn := ""
	if !ok {
		warn = fmt.Sprintf("tweet %s: unparseable created_at %q, timestamp dropped", p.IDStr, p.CreatedAt)
	}

	t := &record.Tweet{
		ID:                p.IDStr,
		CreatedAt:         ts,
		FullText:          p.FullText,
		FavoriteCount:     parseCount(p.FavoriteCount),
		RetweetCount:      parseCount(p.RetweetCount),
		InReplyToStatusID: p.InReplyToStatusID,
		Lang:              p.Lang,
	}
	if p.Entities != nil {
		for _, h := range p.Entities.Hashtags {
			t.Hashtags = append(t.Hashtags, h.Text)
		}
		for _, m := range p.Entities.UserMentions {
			t.Mentions = append(t.Mentions, m.ScreenName)
		}
		for _, u := range p.Entities.URLs {
			t.URLs = append(t.URLs, u.ExpandedURL)
		}
		for _, m := range p.Entities.Media {
			t.Media = append(t.Media, record.MediaRef{URL: m.MediaURL, Type: m.Type, Expanded: m.ExpandedURL})
		}
	}

	return []record.Record{{Type: record.TypeTweet, Tweet: t}}, warn, nil
}

func parseLikeEnvelope(elem json.RawMessage) ([]record.Record, string, error) {
	var env likeEnvelope
	if err := json.Unmarshal(elem, &env); err != nil {
		return nil, "", fmt.Errorf("missing or malformed like payload: %w", err)
	}
	p := env.Like
	if p.TweetID == "" {
		return nil, "", fmt.Errorf("like envelope missing tweetId")
	}

	l := &record.Like{
		TweetID:     p.TweetID,
		FullText:    p.FullText,
		ExpandedURL: p.ExpandedURL,
	}
	return []record.Record{{Type: record.TypeLike, Like: l}}, "", nil
}

func parseDMEnvelope(elem json.RawMessage) ([]record.Record, string, error) {
	var env dmConversationEnvelope
	if err := json.Unmarshal(elem, &env); err != nil {
		return nil, "", fmt.Errorf("missing or malformed dmConversation payload: %w", err)
	}
	conv := env.DMConversation
	if conv.ConversationID == "" {
		return nil, "", fmt.Errorf("dmConversation envelope missing conversationId")
	}

	var records []record.Record
	var warnings []string
	for _, m := range conv.Messages {
		if m.MessageCreate == nil {
			continue
		}
		mc := m.MessageCreate
		ts, ok := parseTimestamp(mc.CreatedAt)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("dm %s: unparseable createdAt %q, timestamp dropped", mc.ID, mc.CreatedAt))
		}
		records = append(records, record.Record{
			Type: record.TypeDM,
			DM: &record.DirectMessage{
				ID:             mc.ID,
				CreatedAt:      ts,
				ConversationID: conv.ConversationID,
				SenderID:       mc.SenderID,
				RecipientID:    mc.RecipientID,
				Text:           mc.Text,
			},
		})
	}

	if len(records) == 0 {
		return nil, "", fmt.Errorf("dmConversation %s: no messageCreate entries", conv.ConversationID)
	}

	warn := ""
	if len(warnings) > 0 {
		warn = warnings[0]
	}
	return records, warn, nil
}

func parseGrokEnvelope(elem json.RawMessage) ([]record.Record, string, error) {
	var env grokEnvelope
	if err := json.Unmarshal(elem, &env); err != nil {
		return nil, "", fmt.Errorf("missing or malformed grokChatItem payload: %w", err)
	}
	p := env.GrokChatItem
	if p.ID == "" {
		return nil, "", fmt.Errorf("grokChatItem envelope missing id")
	}

	ts, ok := parseTimestamp(p.CreatedAt)
	warn := ""
	if !ok {
		warn = fmt.Sprintf("grok %s: unparseable createdAt %q, timestamp dropped", p.ID, p.CreatedAt)
	}

	sender := record.SenderUser
	if p.Sender == "model" || p.Sender == "assistant" || p.Sender == "grok" {
		sender = record.SenderModel
	}

	g := &record.GrokMessage{
		ID:        p.ID,
		CreatedAt: ts,
		ChatID:    p.ChatID,
		Sender:    sender,
		Message:   p.Message,
	}
	return []record.Record{{Type: record.TypeGrok, Grok: g}}, warn, nil
}
