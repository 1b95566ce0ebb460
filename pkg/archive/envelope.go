package archive

import "encoding/json"

// The export wraps every record in an envelope object keyed by a type
// name specific to its shard. These structs mirror that wire shape
// loosely enough to tolerate the export's inconsistent string-vs-number
// encoding of numeric fields (RetweetCount/FavoriteCount arrive as
// quoted strings in the real export).

type tweetEnvelope struct {
	Tweet tweetPayload `json:"tweet"`
}

type tweetPayload struct {
	IDStr             string         `json:"id_str"`
	CreatedAt         string         `json:"created_at"`
	FullText          string         `json:"full_text"`
	RetweetCount      string         `json:"retweet_count"`
	FavoriteCount     string         `json:"favorite_count"`
	Lang              string         `json:"lang"`
	InReplyToStatusID string         `json:"in_reply_to_status_id_str"`
	Entities          *tweetEntities `json:"entities"`
}

type tweetEntities struct {
	Hashtags []struct {
		Text string `json:"text"`
	} `json:"hashtags"`
	UserMentions []struct {
		ScreenName string `json:"screen_name"`
	} `json:"user_mentions"`
	URLs []struct {
		ExpandedURL string `json:"expanded_url"`
	} `json:"urls"`
	Media []struct {
		MediaURL    string `json:"media_url"`
		Type        string `json:"type"`
		ExpandedURL string `json:"expanded_url"`
	} `json:"media"`
}

type likeEnvelope struct {
	Like likePayload `json:"like"`
}

type likePayload struct {
	TweetID     string `json:"tweetId"`
	FullText    string `json:"fullText"`
	ExpandedURL string `json:"expandedUrl"`
}

type dmConversationEnvelope struct {
	DMConversation dmConversationPayload `json:"dmConversation"`
}

type dmConversationPayload struct {
	ConversationID string       `json:"conversationId"`
	Messages       []dmMessage  `json:"messages"`
}

type dmMessage struct {
	MessageCreate *dmMessageCreate `json:"messageCreate"`
}

type dmMessageCreate struct {
	ID          string `json:"id"`
	CreatedAt   string `json:"createdAt"`
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	Text        string `json:"text"`
}

type grokEnvelope struct {
	GrokChatItem grokPayload `json:"grokChatItem"`
}

type grokPayload struct {
	ID        string `json:"id"`
	ChatID    string `json:"conversationId"`
	CreatedAt string `json:"createdAt"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
}

type manifestFile struct {
	UserInfo struct {
		AccountID string `json:"accountId"`
	} `json:"userInfo"`
	UploadOptions struct {
		GeneratedAt string `json:"generatedAt"`
	} `json:"uploadOptions"`
}

// rawEnvelopes is the normally-an-array-of-objects shape every shard but
// manifest.js uses. Decoding into json.RawMessage per element lets a
// single malformed element become a warning instead of aborting the
// whole shard (spec.md §4.1 failure semantics).
func decodeArray(body []byte) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
