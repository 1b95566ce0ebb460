// Package config resolves xarchive's settings the way the teacher's own
// pkg/config does: compiled-in defaults, overridden by a ".env" file if
// present, overridden by the process environment. It deliberately does
// not parse command-line flags — that belongs to the CLI front end, out
// of scope for this core (spec.md §1).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the core components need to construct
// against. Field names mirror the XARCHIVE_* environment variables below.
type Config struct {
	// StorePath is the relational store's single file.
	StorePath string
	// IndexDir holds the keyword-index segments and the vector index file.
	IndexDir string
	// VectorIndexFile is the filename (within IndexDir) of the vector index.
	VectorIndexFile string

	// BM25Params
	BM25K1 float64
	BM25B  float64

	// EdgeNGramMin/Max bound the prefix field's gram lengths (spec.md §9
	// Open Questions: exposed as configuration, defaulting to 2..8).
	EdgeNGramMin int
	EdgeNGramMax int

	// EmbeddingDimension is the fixed output width of the hash-projection
	// embedder (spec.md §3: 384).
	EmbeddingDimension int

	// SegmentSize bounds how many docs the keyword-index writer buffers
	// before it flushes a segment.
	SegmentSize int

	// IndexParallelism bounds the archive parser's file-level thread pool.
	IndexParallelism int

	// LogLevel controls pkg/xlog's verbosity: debug, info, warn, error.
	LogLevel string
}

// Default returns the compiled-in defaults.
func Default() Config {
	return Config{
		StorePath:          "xarchive.db",
		IndexDir:           "xarchive-index",
		VectorIndexFile:    "vectors.xfvi",
		BM25K1:             1.2,
		BM25B:              0.75,
		EdgeNGramMin:       2,
		EdgeNGramMax:       8,
		EmbeddingDimension: 384,
		SegmentSize:        2000,
		IndexParallelism:   4,
		LogLevel:           "info",
	}
}

// Load resolves configuration: defaults, then a ".env" file if one exists
// in the working directory (silently skipped if absent — godotenv.Load
// errors are not fatal, matching the teacher's pkg/config.LoadConfig),
// then process environment overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := Default()
	cfg.StorePath = getEnv("XARCHIVE_STORE_PATH", cfg.StorePath)
	cfg.IndexDir = getEnv("XARCHIVE_INDEX_DIR", cfg.IndexDir)
	cfg.VectorIndexFile = getEnv("XARCHIVE_VECTOR_FILE", cfg.VectorIndexFile)
	cfg.BM25K1 = getEnvFloat("XARCHIVE_BM25_K1", cfg.BM25K1)
	cfg.BM25B = getEnvFloat("XARCHIVE_BM25_B", cfg.BM25B)
	cfg.EdgeNGramMin = getEnvInt("XARCHIVE_NGRAM_MIN", cfg.EdgeNGramMin)
	cfg.EdgeNGramMax = getEnvInt("XARCHIVE_NGRAM_MAX", cfg.EdgeNGramMax)
	cfg.EmbeddingDimension = getEnvInt("XARCHIVE_EMBED_DIM", cfg.EmbeddingDimension)
	cfg.SegmentSize = getEnvInt("XARCHIVE_SEGMENT_SIZE", cfg.SegmentSize)
	cfg.IndexParallelism = getEnvInt("XARCHIVE_PARALLELISM", cfg.IndexParallelism)
	cfg.LogLevel = getEnv("XARCHIVE_LOG_LEVEL", cfg.LogLevel)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// EmbedderTimeout and similar soft budgets can be added here as needed;
// none are enforced by the core today (spec.md §5: "no timeouts enforced
// by the core"). Kept as a named constant so call sites that want to be
// defensive about external tooling (e.g. a future CLI) have one place to
// read a default from.
const DefaultQueryBudget = 10 * time.Second
