// Package record defines the uniform record model that every archive shard
// is normalized into. A Record is a tagged union over the four export
// variants (Tweet, Like, DirectMessage, GrokMessage); callers dispatch on
// Type rather than on a virtual-inheritance hierarchy.
package record

import (
	"encoding/json"
	"time"
)

// Type identifies which variant a Record carries.
type Type string

const (
	TypeTweet Type = "tweet"
	TypeLike  Type = "like"
	TypeDM    Type = "dm"
	TypeGrok  Type = "grok"
)

// Sender distinguishes the two sides of a Grok chat turn.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderModel Sender = "model"
)

// MediaRef is a single media attachment referenced by a tweet.
type MediaRef struct {
	URL     string `json:"url"`
	Type    string `json:"type"`
	Expanded string `json:"expanded_url,omitempty"`
}

// Tweet is an authored tweet record.
type Tweet struct {
	ID                 string     `json:"id"`
	CreatedAt          time.Time  `json:"created_at"`
	FullText           string     `json:"full_text"`
	FavoriteCount      int64      `json:"favorite_count"`
	RetweetCount       int64      `json:"retweet_count"`
	InReplyToStatusID  string     `json:"in_reply_to_status_id,omitempty"`
	Lang               string     `json:"lang,omitempty"`
	Hashtags           []string   `json:"hashtags,omitempty"`
	Mentions           []string   `json:"mentions,omitempty"`
	URLs               []string   `json:"urls,omitempty"`
	Media              []MediaRef `json:"media,omitempty"`
}

// Like is a favorited tweet. The original tweet's text is not guaranteed to
// be present in the export (it may have been deleted upstream).
type Like struct {
	TweetID     string    `json:"tweet_id"`
	CreatedAt   time.Time `json:"created_at"`
	FullText    string    `json:"full_text,omitempty"`
	ExpandedURL string    `json:"expanded_url,omitempty"`
}

// DirectMessage is a single message within a DM conversation.
type DirectMessage struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Text           string    `json:"text"`
}

// GrokMessage is a single turn in an AI-chat (Grok) session.
type GrokMessage struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ChatID    string    `json:"chat_id"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
}

// Record is the tagged union over the four variants. Exactly one of the
// variant fields is non-nil, matching Type.
type Record struct {
	Type Type

	Tweet *Tweet
	Like  *Like
	DM    *DirectMessage
	Grok  *GrokMessage
}

// ID returns the record's natural identity.
func (r Record) ID() string {
	switch r.Type {
	case TypeTweet:
		return r.Tweet.ID
	case TypeLike:
		return r.Like.TweetID
	case TypeDM:
		return r.DM.ID
	case TypeGrok:
		return r.Grok.ID
	default:
		return ""
	}
}

// Timestamp returns the record's creation time, or the zero time if it
// could not be parsed during ingestion.
func (r Record) Timestamp() time.Time {
	switch r.Type {
	case TypeTweet:
		return r.Tweet.CreatedAt
	case TypeLike:
		return r.Like.CreatedAt
	case TypeDM:
		return r.DM.CreatedAt
	case TypeGrok:
		return r.Grok.CreatedAt
	default:
		return time.Time{}
	}
}

// IndexableText returns the text that should feed the keyword index, or
// the empty string if this record carries no searchable text (e.g. a Like
// whose original tweet text was not captured in the export).
func (r Record) IndexableText() string {
	switch r.Type {
	case TypeTweet:
		return r.Tweet.FullText
	case TypeLike:
		return r.Like.FullText
	case TypeDM:
		return r.DM.Text
	case TypeGrok:
		return r.Grok.Message
	default:
		return ""
	}
}

// EmbeddableText returns the text fed to the embedder, truncated to the
// per-variant cap described in the embedder's contract. Tweet and Like
// text is capped at 280 characters; DM and Grok text at 2000.
func (r Record) EmbeddableText() string {
	text := r.IndexableText()
	var cap int
	switch r.Type {
	case TypeTweet, TypeLike:
		cap = 280
	case TypeDM, TypeGrok:
		cap = 2000
	}
	if runes := []rune(text); cap > 0 && len(runes) > cap {
		return string(runes[:cap])
	}
	return text
}

// StoredMetadata serializes the variant's non-text fields to JSON, for the
// display record's "metadata" object and the relational store's row.
func (r Record) StoredMetadata() ([]byte, error) {
	switch r.Type {
	case TypeTweet:
		return json.Marshal(r.Tweet)
	case TypeLike:
		return json.Marshal(r.Like)
	case TypeDM:
		return json.Marshal(r.DM)
	case TypeGrok:
		return json.Marshal(r.Grok)
	default:
		return []byte("{}"), nil
	}
}

// Conversation is an ordered sequence of DirectMessage records sharing a
// conversation ID. It is derived on demand, never persisted as its own
// table (spec.md §3).
type Conversation struct {
	ConversationID string
	Messages       []DirectMessage
}

// ArchiveManifest is the descriptive header parsed from manifest.js. It is
// never indexed. The parser fills AccountID and GeneratedAt only;
// TweetCount and DirectMessageCount stay zero.
type ArchiveManifest struct {
	AccountID      string    `json:"account_id"`
	GeneratedAt    time.Time `json:"generated_at"`
	TweetCount     int64     `json:"tweet_count,omitempty"`
	DirectMessageCount int64 `json:"dm_count,omitempty"`
}

// IndexedDoc is the unit of retrieval: the logical entity the keyword and
// vector indexes agree on, identified by (Type, DocID).
type IndexedDoc struct {
	Type      Type
	DocID     string
	Timestamp int64 // UTC seconds since epoch
	Metadata  []byte
}

// Embedding is a persisted (doc_type, doc_id) vector with its content hash,
// used to skip re-embedding unchanged records on re-index.
type Embedding struct {
	Type        Type
	DocID       string
	Dimension   int
	Components  []float32
	ContentHash string // hex-encoded SHA-256 of the canonicalised text
}
