package archive

import (
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"xarchive/pkg/record"
)

// Result is the aggregated outcome of parsing an entire archive directory.
type Result struct {
	Records  []record.Record
	Manifest record.ArchiveManifest
	Warnings []Warning
	// Errors holds one entry per shard this run could not parse at all
	// (KindUnreadableShard/KindMalformedJSON). Sibling shards still
	// contribute their records, per spec.md §4.1.
	Errors []error
}

// Options controls archive parsing.
type Options struct {
	// Parallelism bounds the number of shard files read concurrently.
	// Zero selects a sensible default.
	Parallelism int
}

// ParseArchive walks <root>/data/*.js, classifies each shard by filename,
// and parses it. Shards are processed in parallel across files (bounded by
// Options.Parallelism via golang.org/x/sync/errgroup); within one file,
// envelopes are processed in their on-disk order.
func ParseArchive(root string, opts Options) (Result, error) {
	dataDir := filepath.Join(root, "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return Result{}, notFound(dataDir)
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}

	type shardJob struct {
		path string
		name string
	}

	var jobs []shardJob
	var manifestPath string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".js" {
			continue
		}
		if classifyShard(name) == shardManifest {
			manifestPath = filepath.Join(dataDir, name)
			continue
		}
		if classifyShard(name) == shardUnknown {
			continue
		}
		jobs = append(jobs, shardJob{path: filepath.Join(dataDir, name), name: name})
	}

	results := make([]ShardResult, len(jobs))
	shardErrs := make([]error, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(parallelism)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			content, err := os.ReadFile(job.path)
			if err != nil {
				shardErrs[i] = unreadableShard(job.path, err)
				return nil
			}
			res, err := ParseShard(job.path, job.name, content)
			if err != nil {
				shardErrs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	// errgroup.Group.Go's func never returns a non-nil error above, so
	// Wait() cannot fail; per-shard failures are collected in shardErrs
	// instead, which is what lets sibling shards keep going.
	_ = g.Wait()

	var out Result
	for i := range jobs {
		if shardErrs[i] != nil {
			out.Errors = append(out.Errors, shardErrs[i])
			continue
		}
		out.Records = append(out.Records, results[i].Records...)
		out.Warnings = append(out.Warnings, results[i].Warnings...)
	}

	// Deterministic ordering downstream (tests, golden output) benefits
	// from a stable record order; sort by (type, id).
	sort.SliceStable(out.Records, func(a, b int) bool {
		ra, rb := out.Records[a], out.Records[b]
		if ra.Type != rb.Type {
			return ra.Type < rb.Type
		}
		return ra.ID() < rb.ID()
	})

	if manifestPath != "" {
		content, err := os.ReadFile(manifestPath)
		if err == nil {
			if mf, err := ParseManifest(manifestPath, content); err == nil {
				out.Manifest = mf
			}
		}
	}

	return out, nil
}
