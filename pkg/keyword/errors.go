// Package keyword is the hand-rolled inverted index over the fixed
// five-field schema (id, type, text, text_prefix, created_at) described
// by the search engine's keyword substrate. No bundled full-text engine
// in the dependency pack matches this schema or its deterministic
// tie-break contract closely enough to adopt without fighting its own
// abstractions, so the index is built directly, in the spirit of the
// teacher's own hand-rolled substrates (pkg/memory's ring buffer, for
// instance) rather than reached for off the shelf.
package keyword

import "fmt"

// Kind enumerates the KeywordIndexError taxonomy.
type Kind string

const (
	KindIO        Kind = "io"
	KindCorrupt   Kind = "corrupt"
	KindQueryParse Kind = "query_parse"
)

// Error is the keyword index's single error type.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("keyword: %s", e.Kind)
	}
	return fmt.Sprintf("keyword: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func ioError(err error) error        { return &Error{Kind: KindIO, Err: err} }
func corruptError(err error) error   { return &Error{Kind: KindCorrupt, Err: err} }
func queryParseError(err error) error { return &Error{Kind: KindQueryParse, Err: err} }
