package keyword

import (
	"strings"
)

// clauseOp is the boolean combinator joining a clause to the ones before it.
type clauseOp int

const (
	opOr clauseOp = iota
	opAnd
	opNot
)

// clauseKind distinguishes a single-term clause, a phrase clause, or a
// prefix clause routed to the text_prefix field.
type clauseKind int

const (
	kindTerm clauseKind = iota
	kindPhrase
	kindPrefix
)

type clause struct {
	op    clauseOp
	kind  clauseKind
	term  string   // single term or prefix stem
	terms []string // phrase tokens, in order
}

// parsedQuery is the normalized form of a search string ready for
// evaluation against a segment.
type parsedQuery struct {
	clauses []clause
}

// parseQuery tokenizes a raw query string into clauses. Quoted
// substrings become phrase clauses; `AND`, `OR`, `NOT` (case-sensitive)
// set the combinator for the clause that follows; bare terms default to
// OR; a trailing `*` on a term marks it a prefix clause.
func parseQuery(raw string) (parsedQuery, error) {
	words, err := splitQueryWords(raw)
	if err != nil {
		return parsedQuery{}, err
	}

	var q parsedQuery
	nextOp := opOr
	for _, w := range words {
		switch w {
		case "AND":
			nextOp = opAnd
			continue
		case "OR":
			nextOp = opOr
			continue
		case "NOT":
			nextOp = opNot
			continue
		}

		if strings.HasPrefix(w, `"`) && strings.HasSuffix(w, `"`) && len(w) >= 2 {
			phrase := strings.Trim(w, `"`)
			tokens := tokenize(phrase)
			if len(tokens) == 0 {
				nextOp = opOr
				continue
			}
			q.clauses = append(q.clauses, clause{op: nextOp, kind: kindPhrase, terms: tokens})
			nextOp = opOr
			continue
		}

		if strings.HasSuffix(w, "*") && len(w) > 1 {
			stem := strings.ToLower(strings.TrimSuffix(w, "*"))
			q.clauses = append(q.clauses, clause{op: nextOp, kind: kindPrefix, term: stem})
			nextOp = opOr
			continue
		}

		toks := tokenize(w)
		if len(toks) == 0 {
			nextOp = opOr
			continue
		}
		for _, t := range toks {
			q.clauses = append(q.clauses, clause{op: nextOp, kind: kindTerm, term: t})
			nextOp = opOr
		}
	}
	return q, nil
}

// splitQueryWords splits on whitespace while keeping double-quoted
// phrases intact as single words. An unterminated quote is a parse error.
func splitQueryWords(raw string) ([]string, error) {
	var words []string
	var b strings.Builder
	inQuote := false
	for _, r := range raw {
		switch {
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			if inQuote {
				b.WriteRune(r)
				continue
			}
			if b.Len() > 0 {
				words = append(words, b.String())
				b.Reset()
			}
		default:
			b.WriteRune(r)
		}
	}
	if inQuote {
		return nil, queryParseError(errUnterminatedQuote)
	}
	if b.Len() > 0 {
		words = append(words, b.String())
	}
	return words, nil
}

var errUnterminatedQuote = unterminatedQuoteError{}

type unterminatedQuoteError struct{}

func (unterminatedQuoteError) Error() string { return "unterminated quoted phrase" }
