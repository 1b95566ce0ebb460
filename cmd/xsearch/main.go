// Command xsearch indexes an X/Twitter archive export and searches it.
// It is a thin translation layer over pkg/indexer and pkg/query: flag
// parsing and result formatting only, no behavior of its own (spec.md §6).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"

	"xarchive/pkg/config"
	"xarchive/pkg/enrich"
	"xarchive/pkg/indexer"
	"xarchive/pkg/keyword"
	"xarchive/pkg/query"
	"xarchive/pkg/record"
	"xarchive/pkg/store"
	"xarchive/pkg/vectorindex"
	"xarchive/pkg/xlog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := config.Load()
	logger := xlog.New(cfg.LogLevel)
	xlog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx := &indexCommand{cfg: &cfg}
	srch := &searchCommand{cfg: &cfg}

	parser := flags.NewParser(nil, flags.Default)
	parser.ShortDescription = "xsearch"
	parser.LongDescription = "Index and search an X/Twitter archive export."
	if _, err := parser.AddCommand("index", "Index an archive export", "Parses an archive and builds the relational store, keyword index, and vector index.", idx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if _, err := parser.AddCommand("search", "Search an indexed archive", "Runs a lexical, semantic, or hybrid query against an indexed archive.", srch); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	idx.ctx, srch.ctx = ctx, ctx

	if _, err := parser.ParseArgs(args); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return exitCodeFor(err)
	}
	return 0
}

// exitCodeFor maps the core's typed errors onto spec.md §6.4's contract:
// 0 success, 1 user error, 2 internal, 130 cancelled.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch e := err.(type) {
	case *indexer.Error:
		switch e.Kind {
		case indexer.KindUser:
			return 1
		case indexer.KindCancelled:
			return 130
		default:
			return 2
		}
	case *query.Error:
		switch e.Kind {
		case query.KindParse, query.KindInvalidDate, query.KindNoIndex:
			return 1
		case query.KindCancelled:
			return 130
		default:
			return 2
		}
	default:
		if errors.Is(err, context.Canceled) {
			return 130
		}
		return 2
	}
}

type indexCommand struct {
	Force bool     `long:"force" description:"truncate all substrates and rebuild from scratch"`
	Only  []string `long:"only" description:"restrict indexing to these record types (tweet, like, dm, grok)"`
	Skip  []string `long:"skip" description:"exclude these record types from indexing"`

	Args struct {
		ArchivePath string `positional-arg-name:"archive-path" required:"true"`
	} `positional-args:"yes"`

	cfg *config.Config
	ctx context.Context
}

func (c *indexCommand) Execute(_ []string) error {
	only, err := parseTypes(c.Only)
	if err != nil {
		return err
	}
	skip, err := parseTypes(c.Skip)
	if err != nil {
		return err
	}

	summary, err := indexer.Run(c.ctx, indexer.Options{
		ArchivePath: c.Args.ArchivePath,
		Force:       c.Force,
		Only:        only,
		Skip:        skip,
		Config:      *c.cfg,
		Logger:      xlog.For("indexer"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d; skipped %d; warnings %d\n", summary.Indexed, summary.Skipped, summary.Warnings)
	return nil
}

func parseTypes(raw []string) ([]record.Type, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]record.Type, 0, len(raw))
	for _, r := range raw {
		switch record.Type(strings.ToLower(r)) {
		case record.TypeTweet, record.TypeLike, record.TypeDM, record.TypeGrok:
			out = append(out, record.Type(strings.ToLower(r)))
		default:
			return nil, &indexer.Error{Kind: indexer.KindUser, Err: fmt.Errorf("unknown record type %q", r)}
		}
	}
	return out, nil
}

type searchCommand struct {
	Mode    string   `long:"mode" choice:"lexical" choice:"semantic" choice:"hybrid" default:"hybrid" description:"retrieval mode"`
	Types   []string `long:"types" description:"restrict results to these record types"`
	Since   string   `long:"since" description:"only results at or after this RFC-3339 timestamp"`
	Until   string   `long:"until" description:"only results at or before this RFC-3339 timestamp"`
	Sort    string   `long:"sort" choice:"relevance" choice:"date_asc" choice:"date_desc" choice:"engagement" default:"relevance"`
	Limit   int      `long:"limit" default:"20"`
	Offset  int      `long:"offset" default:"0"`
	JSON    bool     `long:"json" description:"emit results as a JSON array instead of text"`
	Context bool     `long:"context" description:"for dm hits, expand the full conversation"`

	Args struct {
		Query string `positional-arg-name:"query" required:"true"`
	} `positional-args:"yes"`

	cfg *config.Config
	ctx context.Context
}

func (c *searchCommand) Execute(_ []string) error {
	plan, err := c.buildPlan()
	if err != nil {
		return err
	}

	kr, krErr := keyword.NewReader(c.cfg.IndexDir, c.cfg.BM25K1, c.cfg.BM25B)
	if krErr != nil {
		kr = nil
	}
	vectorPath := filepath.Join(c.cfg.IndexDir, c.cfg.VectorIndexFile)
	vr, vrErr := vectorindex.Open(vectorPath)
	if vrErr != nil {
		vr = nil
	} else {
		defer vr.Close()
	}

	st, err := store.Open(c.ctx, c.cfg.StorePath, false, xlog.For("store"))
	if err != nil {
		return &query.Error{Kind: query.KindNoIndex, Err: err}
	}
	defer st.Close()

	planner := query.New(kr, vr, st, xlog.For("query"))
	hits, err := planner.Search(c.ctx, plan)
	if err != nil {
		return err
	}

	e := enrich.New(st, xlog.For("enrich"))
	display, err := e.Hydrate(c.ctx, hits)
	if err != nil {
		return err
	}

	if c.Context {
		return c.printWithConversations(e, display, hits)
	}
	return printDisplayRecords(display, c.JSON)
}

func (c *searchCommand) buildPlan() (query.Plan, error) {
	plan := query.Plan{
		Query:  c.Args.Query,
		Types:  c.Types,
		Limit:  c.Limit,
		Offset: c.Offset,
	}

	switch c.Mode {
	case "lexical":
		plan.Mode = query.ModeLexical
	case "semantic":
		plan.Mode = query.ModeSemantic
	default:
		plan.Mode = query.ModeHybrid
	}

	switch c.Sort {
	case "date_asc":
		plan.Sort = query.SortDateAsc
	case "date_desc":
		plan.Sort = query.SortDateDesc
	case "engagement":
		plan.Sort = query.SortEngagement
	default:
		plan.Sort = query.SortRelevance
	}

	if c.Since != "" {
		t, err := time.Parse(time.RFC3339, c.Since)
		if err != nil {
			return query.Plan{}, &query.Error{Kind: query.KindInvalidDate, Err: err}
		}
		plan.Since = &t
	}
	if c.Until != "" {
		t, err := time.Parse(time.RFC3339, c.Until)
		if err != nil {
			return query.Plan{}, &query.Error{Kind: query.KindInvalidDate, Err: err}
		}
		plan.Until = &t
	}
	return plan, nil
}

func printDisplayRecords(records []enrich.DisplayRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(records)
	}
	for _, r := range records {
		fmt.Printf("[%s] %s %s  %.4f  %s\n", r.DocType, r.ID, r.CreatedAt, r.Score, r.Text)
	}
	return nil
}

// printWithConversations expands every dm hit into its full conversation
// (spec.md §4.8's "context option on"), leaving non-dm hits as plain
// display records.
func (c *searchCommand) printWithConversations(e *enrich.Enricher, records []enrich.DisplayRecord, hits []query.Hit) error {
	matched := make(map[string]bool, len(hits))
	for _, h := range hits {
		if h.Type == string(record.TypeDM) {
			matched[h.DocID] = true
		}
	}

	var others []enrich.DisplayRecord
	seenConversations := make(map[string]bool)
	var conversations []enrich.ConversationContext

	for _, r := range records {
		if r.DocType != string(record.TypeDM) {
			others = append(others, r)
			continue
		}
		convID := conversationIDFromMetadata(r.Metadata)
		if convID == "" || seenConversations[convID] {
			continue
		}
		seenConversations[convID] = true
		convCtx, err := e.HydrateConversation(c.ctx, convID, matched)
		if err != nil {
			return err
		}
		conversations = append(conversations, convCtx)
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(others); err != nil {
			return err
		}
		return enc.Encode(conversations)
	}

	if err := printDisplayRecords(others, false); err != nil {
		return err
	}
	for _, conv := range conversations {
		fmt.Printf("conversation %s:\n", conv.ConversationID)
		for _, m := range conv.Messages {
			marker := " "
			if m.IsMatch {
				marker = "*"
			}
			fmt.Printf("  %s [%s] %s  %s\n", marker, m.CreatedAt, m.ID, m.Text)
		}
	}
	return nil
}

func conversationIDFromMetadata(metadata json.RawMessage) string {
	var fields struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.Unmarshal(metadata, &fields); err != nil {
		return ""
	}
	return fields.ConversationID
}
