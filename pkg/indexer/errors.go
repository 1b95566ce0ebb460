package indexer

import "fmt"

// Kind enumerates the indexing orchestrator's error taxonomy, used by the
// CLI front end to choose an exit code (spec.md §6.4).
type Kind string

const (
	KindUser      Kind = "user"
	KindInternal  Kind = "internal"
	KindCancelled Kind = "cancelled"
)

// Error is the orchestrator's single error type.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("indexer: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("indexer: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func userError(err error) error     { return &Error{Kind: KindUser, Err: err} }
func internalError(err error) error { return &Error{Kind: KindInternal, Err: err} }
func cancelledError() error         { return &Error{Kind: KindCancelled} }
