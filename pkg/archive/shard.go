package archive

import (
	"regexp"
	"strings"
)

// shardType is the archive's internal notion of a recognized shard's record
// type, distinct from record.Type because "manifest" carries no records.
type shardType string

const (
	shardTweet     shardType = "tweet"
	shardLike      shardType = "like"
	shardDM        shardType = "dm"
	shardGrok      shardType = "grok"
	shardManifest  shardType = "manifest"
	shardUnknown   shardType = ""
)

// shardNamePattern strips an optional "-partN" suffix so sharded variants
// (tweets-part1.js, tweets-part2.js, ...) resolve to the same type as the
// unsharded form.
var shardNamePattern = regexp.MustCompile(`-part\d+$`)

// classifyShard maps a shard's base filename (without extension or
// directory) to the record type it carries. Unknown shards are classified
// as shardUnknown and silently ignored by the caller, per spec.md §6.1.
func classifyShard(base string) shardType {
	name := strings.TrimSuffix(base, ".js")
	name = shardNamePattern.ReplaceAllString(name, "")

	switch name {
	case "tweets":
		return shardTweet
	case "like":
		return shardLike
	case "direct-messages":
		return shardDM
	case "grok-chat-item":
		return shardGrok
	case "manifest":
		return shardManifest
	default:
		return shardUnknown
	}
}
