package keyword

import "math"

// bm25 scores a single term occurrence in one document of a segment.
// k1 and b are the caller's configured constants (spec default 1.2/0.75,
// threaded through from pkg/config rather than hardcoded so tests can
// exercise alternate tunings without rebuilding the index).
func bm25(termFreq int, docLen int32, docFreq, totalDocs int, avgDocLen, k1, b float64) float64 {
	if totalDocs == 0 || docFreq == 0 || termFreq == 0 {
		return 0
	}
	idf := math.Log(1 + (float64(totalDocs)-float64(docFreq)+0.5)/(float64(docFreq)+0.5))
	norm := float64(termFreq) * (k1 + 1)
	denom := float64(termFreq) + k1*(1-b+b*float64(docLen)/avgDocLen)
	return idf * norm / denom
}

// matchSet maps a segment-local doc ordinal to its accumulated score for
// one clause's evaluation.
type matchSet map[int32]float64

func (s *segment) termMatches(term string, k1, b float64) matchSet {
	postings, ok := s.Postings[term]
	if !ok {
		return matchSet{}
	}
	df := countDistinctDocs(postings)
	freq := make(map[int32]int, len(postings))
	for _, p := range postings {
		freq[p.DocOrd]++
	}
	out := make(matchSet, len(freq))
	for ord, tf := range freq {
		out[ord] = bm25(tf, s.Docs[ord].TermCount, df, len(s.Docs), s.AvgDocLength, k1, b)
	}
	return out
}

func (s *segment) phraseMatches(terms []string, k1, b float64) matchSet {
	if len(terms) == 0 {
		return matchSet{}
	}
	first, ok := s.Postings[terms[0]]
	if !ok {
		return matchSet{}
	}
	candidates := map[int32][]int32{} // docOrd -> starting positions from first term
	for _, p := range first {
		candidates[p.DocOrd] = append(candidates[p.DocOrd], p.Pos)
	}

	out := matchSet{}
	for docOrd, starts := range candidates {
		for _, start := range starts {
			if s.phraseMatchesAt(terms, docOrd, start) {
				var score float64
				for _, t := range terms {
					score += s.termScoreAt(t, docOrd, k1, b)
				}
				if existing, ok := out[docOrd]; !ok || score > existing {
					out[docOrd] = score
				}
				break
			}
		}
	}
	return out
}

func (s *segment) phraseMatchesAt(terms []string, docOrd int32, start int32) bool {
	for i := 1; i < len(terms); i++ {
		postings, ok := s.Postings[terms[i]]
		if !ok {
			return false
		}
		if !hasPostingAt(postings, docOrd, start+int32(i)) {
			return false
		}
	}
	return true
}

func (s *segment) termScoreAt(term string, docOrd int32, k1, b float64) float64 {
	postings := s.Postings[term]
	df := countDistinctDocs(postings)
	tf := 0
	for _, p := range postings {
		if p.DocOrd == docOrd {
			tf++
		}
	}
	return bm25(tf, s.Docs[docOrd].TermCount, df, len(s.Docs), s.AvgDocLength, k1, b)
}

func (s *segment) prefixMatches(stem string, k1, b float64) matchSet {
	ords, ok := s.PrefixIndex[stem]
	if !ok {
		return matchSet{}
	}
	df := len(ords)
	out := make(matchSet, len(ords))
	for _, ord := range ords {
		out[ord] = bm25(1, s.Docs[ord].TermCount, df, len(s.Docs), s.AvgDocLength, k1, b)
	}
	return out
}

func hasPostingAt(postings []posting, docOrd, pos int32) bool {
	for _, p := range postings {
		if p.DocOrd == docOrd && p.Pos == pos {
			return true
		}
	}
	return false
}

func countDistinctDocs(postings []posting) int {
	seen := map[int32]struct{}{}
	for _, p := range postings {
		seen[p.DocOrd] = struct{}{}
	}
	return len(seen)
}

// evaluate combines every clause's matchSet according to its operator,
// left to right, matching the planner's OR-by-default/AND/NOT contract.
func (s *segment) evaluate(q parsedQuery, k1, b float64) matchSet {
	var result matchSet
	for _, c := range q.clauses {
		var m matchSet
		switch c.kind {
		case kindTerm:
			m = s.termMatches(c.term, k1, b)
		case kindPhrase:
			m = s.phraseMatches(c.terms, k1, b)
		case kindPrefix:
			m = s.prefixMatches(c.term, k1, b)
		}

		switch {
		case result == nil:
			if c.op == opNot {
				result = matchSet{}
			} else {
				result = m
			}
		case c.op == opOr:
			for ord, score := range m {
				if existing, ok := result[ord]; ok {
					result[ord] = existing + score
				} else {
					result[ord] = score
				}
			}
		case c.op == opAnd:
			next := matchSet{}
			for ord, score := range result {
				if ms, ok := m[ord]; ok {
					next[ord] = score + ms
				}
			}
			result = next
		case c.op == opNot:
			for ord := range m {
				delete(result, ord)
			}
		}
	}
	if result == nil {
		result = matchSet{}
	}
	return result
}
