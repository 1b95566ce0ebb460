package query

import (
	"context"
	"sort"

	"xarchive/pkg/embedding"
	"xarchive/pkg/fusion"
	"xarchive/pkg/keyword"
	"xarchive/pkg/record"
	"xarchive/pkg/store"
	"xarchive/pkg/vectorindex"
	"xarchive/pkg/xlog"
)

// enrichPollEvery is the cadence (in results) at which the planner
// re-checks ctx for cancellation during enrichment-adjacent work.
const enrichPollEvery = 64

// Planner executes QueryPlans against the keyword index, the vector
// index, or both. Either index handle may be nil if that substrate has
// never been built. Semantic mode without a vector index fails with
// QueryError{NoIndex}. Lexical mode without a keyword index falls back
// to the store's fulltext table, and fails with NoIndex only when no
// store is set either. Hybrid mode uses whichever side is available.
type Planner struct {
	keywordReader *keyword.Reader
	vectorReader  *vectorindex.Reader
	store         *store.Store
	logger        *xlog.Logger
}

// New constructs a planner. Either reader may be nil.
func New(keywordReader *keyword.Reader, vectorReader *vectorindex.Reader, st *store.Store, logger *xlog.Logger) *Planner {
	if logger == nil {
		logger = xlog.For("query")
	}
	return &Planner{keywordReader: keywordReader, vectorReader: vectorReader, store: st, logger: logger}
}

// Search runs plan to completion, returning a ranked hit list ready for
// the enricher.
func (p *Planner) Search(ctx context.Context, plan Plan) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelledError()
	}

	limit := defaultLimit(plan.Limit)
	offset := plan.Offset

	var hits []Hit
	var err error
	switch plan.Mode {
	case ModeLexical:
		hits, err = p.runLexical(ctx, plan)
	case ModeSemantic:
		hits, err = p.runSemantic(ctx, plan, limit+offset, true)
	case ModeHybrid:
		hits, err = p.runHybrid(ctx, plan, limit, offset)
	default:
		hits, err = p.runLexical(ctx, plan)
	}
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, cancelledError()
	}

	hits = p.filter(hits, plan)
	hits = p.sortHits(ctx, hits, plan.Sort)

	return slice(hits, offset, limit), nil
}

func (p *Planner) runLexical(ctx context.Context, plan Plan) ([]Hit, error) {
	if p.keywordReader == nil {
		return p.runFulltextFallback(ctx, plan)
	}
	results, err := p.keywordReader.Search(plan.Query)
	if err != nil {
		if kerr, ok := err.(*keyword.Error); ok && kerr.Kind == keyword.KindQueryParse {
			return nil, parseError(kerr)
		}
		return nil, internalError(err)
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{Type: r.Type, DocID: r.DocID, CreatedAt: r.CreatedAt, Score: r.Score}
	}
	return hits, nil
}

// runFulltextFallback degrades lexical search to a substring scan over the
// store's fulltext table when the keyword index is absent or failed to
// open. It has no ranking sophistication, but keeps --mode lexical working
// against a store with a missing or corrupt keyword index.
func (p *Planner) runFulltextFallback(ctx context.Context, plan Plan) ([]Hit, error) {
	if p.store == nil {
		return nil, noIndexError("keyword index")
	}
	results, err := p.store.SearchFulltext(ctx, plan.Query)
	if err != nil {
		return nil, internalError(err)
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{Type: r.Type, DocID: r.DocID, CreatedAt: r.CreatedAt, Score: r.Score}
	}
	return hits, nil
}

// runSemantic runs the vector-index leg of a query. applyTypeFilter controls
// whether plan.Types is pushed down into the vector search itself: standalone
// semantic queries may push it down safely, but the hybrid leg must not, since
// filtering before RRF fusion would change surviving docs' rank_in_list
// relative to an unfiltered scan. Hybrid filtering happens exclusively in
// filter(), after fusion.
func (p *Planner) runSemantic(ctx context.Context, plan Plan, k int, applyTypeFilter bool) ([]Hit, error) {
	if p.vectorReader == nil {
		return nil, noIndexError("vector index")
	}
	queryVec, _, ok := embedding.Embed(record.TypeTweet, plan.Query)
	if !ok {
		return nil, nil // query canonicalised to nothing embeddable
	}

	opts := vectorindex.SearchOptions{}
	if applyTypeFilter && len(plan.Types) > 0 {
		opts.TypeFilter = toSet(plan.Types)
	}

	results, err := p.vectorReader.Search(queryVec, k, opts)
	if err != nil {
		return nil, internalError(err)
	}

	hits := make([]Hit, 0, len(results))
	for i, r := range results {
		if i%enrichPollEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, cancelledError()
			}
		}
		createdAt := p.lookupCreatedAt(ctx, record.Type(r.Type), r.DocID)
		hits = append(hits, Hit{Type: r.Type, DocID: r.DocID, CreatedAt: createdAt, Score: r.Similarity})
	}
	return hits, nil
}

func (p *Planner) runHybrid(ctx context.Context, plan Plan, limit, offset int) ([]Hit, error) {
	k := hybridK(limit, offset)

	lexHits, lexErr := p.runLexical(ctx, plan)
	if lexErr != nil {
		if qerr, ok := lexErr.(*Error); !ok || qerr.Kind != KindNoIndex {
			return nil, lexErr
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelledError()
	}

	semHits, semErr := p.runSemantic(ctx, plan, k, false)
	if semErr != nil {
		if qerr, ok := semErr.(*Error); !ok || qerr.Kind != KindNoIndex {
			return nil, semErr
		}
	}

	if lexHits == nil && semHits == nil {
		return nil, noIndexError("keyword and vector index")
	}

	lexRanked := toRanked(lexHits, k)
	semRanked := toRanked(semHits, k)
	fused := fusion.Fuse(lexRanked, semRanked)

	lookup := map[string]int64{}
	for _, h := range lexHits {
		lookup[h.Type+":"+h.DocID] = h.CreatedAt
	}
	for _, h := range semHits {
		if _, ok := lookup[h.Type+":"+h.DocID]; !ok {
			lookup[h.Type+":"+h.DocID] = h.CreatedAt
		}
	}

	hits := make([]Hit, len(fused))
	for i, f := range fused {
		hits[i] = Hit{Type: f.Type, DocID: f.DocID, CreatedAt: lookup[f.Type+":"+f.DocID], Score: f.Score}
	}
	return hits, nil
}

func toRanked(hits []Hit, limit int) []fusion.Ranked {
	n := len(hits)
	if n > limit {
		n = limit
	}
	out := make([]fusion.Ranked, n)
	for i := 0; i < n; i++ {
		out[i] = fusion.Ranked{Type: hits[i].Type, DocID: hits[i].DocID}
	}
	return out
}

func (p *Planner) lookupCreatedAt(ctx context.Context, typ record.Type, docID string) int64 {
	if p.store == nil {
		return 0
	}
	rec, ok, err := p.store.GetRecord(ctx, typ, docID)
	if err != nil || !ok {
		return 0
	}
	return rec.Timestamp().Unix()
}

func (p *Planner) filter(hits []Hit, plan Plan) []Hit {
	if len(plan.Types) == 0 && plan.Since == nil && plan.Until == nil {
		return hits
	}
	types := toSet(plan.Types)
	out := hits[:0:0]
	for _, h := range hits {
		if len(types) > 0 && !types[h.Type] {
			continue
		}
		if plan.Since != nil && h.CreatedAt < plan.Since.Unix() {
			continue
		}
		if plan.Until != nil && h.CreatedAt > plan.Until.Unix() {
			continue
		}
		out = append(out, h)
	}
	return out
}

func (p *Planner) sortHits(ctx context.Context, hits []Hit, order SortOrder) []Hit {
	switch order {
	case "", SortRelevance:
		sort.SliceStable(hits, func(i, j int) bool {
			if hits[i].Score != hits[j].Score {
				return hits[i].Score > hits[j].Score
			}
			return tieKey(hits[i]) < tieKey(hits[j])
		})
	case SortDateAsc:
		sort.SliceStable(hits, func(i, j int) bool {
			if hits[i].CreatedAt != hits[j].CreatedAt {
				return hits[i].CreatedAt < hits[j].CreatedAt
			}
			return tieKey(hits[i]) < tieKey(hits[j])
		})
	case SortDateDesc:
		sort.SliceStable(hits, func(i, j int) bool {
			if hits[i].CreatedAt != hits[j].CreatedAt {
				return hits[i].CreatedAt > hits[j].CreatedAt
			}
			return tieKey(hits[i]) < tieKey(hits[j])
		})
	case SortEngagement:
		scores := make(map[string]float64, len(hits))
		for _, h := range hits {
			scores[tieKey(h)] = p.engagementScore(ctx, h)
		}
		sort.SliceStable(hits, func(i, j int) bool {
			si, sj := scores[tieKey(hits[i])], scores[tieKey(hits[j])]
			if si != sj {
				return si > sj
			}
			if hits[i].CreatedAt != hits[j].CreatedAt {
				return hits[i].CreatedAt > hits[j].CreatedAt
			}
			return tieKey(hits[i]) < tieKey(hits[j])
		})
	}
	return hits
}

// engagementScore sums favorite and retweet counts for tweet hits. Every
// other record type carries no engagement signal and scores 0, so they sort
// to the bottom under SortEngagement, tie-broken by recency.
func (p *Planner) engagementScore(ctx context.Context, h Hit) float64 {
	if p.store == nil || record.Type(h.Type) != record.TypeTweet {
		return 0
	}
	rec, ok, err := p.store.GetRecord(ctx, record.TypeTweet, h.DocID)
	if err != nil || !ok || rec.Tweet == nil {
		return 0
	}
	return float64(rec.Tweet.FavoriteCount + rec.Tweet.RetweetCount)
}

func tieKey(h Hit) string { return h.Type + ":" + h.DocID }

func toSet(types []string) map[string]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

func slice(hits []Hit, offset, limit int) []Hit {
	if offset >= len(hits) {
		return []Hit{}
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}
