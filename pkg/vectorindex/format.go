package vectorindex

import "xarchive/pkg/record"

const (
	magic         = "XFVI"
	formatVersion = uint16(1)
	headerLength  = 32
)

// docTypeCode maps a record.Type to its on-disk single-byte encoding.
func docTypeCode(t record.Type) (uint8, bool) {
	switch t {
	case record.TypeTweet:
		return 0, true
	case record.TypeLike:
		return 1, true
	case record.TypeDM:
		return 2, true
	case record.TypeGrok:
		return 3, true
	default:
		return 0, false
	}
}

func docTypeFromCode(code uint8) (record.Type, bool) {
	switch code {
	case 0:
		return record.TypeTweet, true
	case 1:
		return record.TypeLike, true
	case 2:
		return record.TypeDM, true
	case 3:
		return record.TypeGrok, true
	default:
		return "", false
	}
}

// VectorRecord is one entry the writer persists and the reader yields.
type VectorRecord struct {
	Type      record.Type
	DocID     string
	CreatedAt int64 // not persisted; supplied for the caller's side filters
	Vector    []float32
}
