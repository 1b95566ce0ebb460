// Package query is the search engine's planner: it accepts a QueryPlan,
// dispatches to the keyword index, the vector index, or both, fuses
// results when hybrid, applies type/date filters and sort overrides,
// and hands the final ranked (doc_type, doc_id) list to the enricher.
package query

import "time"

// Mode selects which retrieval path a plan runs.
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// SortOrder selects the final ordering of a result set.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortDateAsc   SortOrder = "date_asc"
	SortDateDesc  SortOrder = "date_desc"
	SortEngagement SortOrder = "engagement"
)

// Plan is the planner's single input value.
type Plan struct {
	Query string
	Mode  Mode

	Types []string // empty means no type filter
	Since *time.Time
	Until *time.Time

	Sort   SortOrder
	Limit  int
	Offset int
}

// Hit is one ranked result before enrichment.
type Hit struct {
	Type      string
	DocID     string
	CreatedAt int64
	Score     float64
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

// hybridK computes the expanded retrieval depth used to feed RRF:
// 4*(limit+offset), capped at 200 but never below limit+offset.
func hybridK(limit, offset int) int {
	k := 4 * (limit + offset)
	if k > 200 {
		k = 200
	}
	if k < limit+offset {
		k = limit + offset
	}
	return k
}
