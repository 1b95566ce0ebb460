// Package store is the relational system of record: one table per record
// variant, a full-text auxiliary table, an embeddings table, and a meta
// table (spec.md §4.2). It is backed by SQLite through
// github.com/jmoiron/sqlx and github.com/mattn/go-sqlite3, with schema
// migrations run by github.com/pressly/goose/v3 against an embed.FS —
// the same combination the teacher's pkg/db package uses, generalized
// from its Twin-specific schema to this archive's four record tables.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"xarchive/pkg/xlog"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const driverName = "sqlite3_xarchive"

var registerOnce sync.Once

// registerDriver installs a custom-named sqlite3 driver with a
// ConnectHook that enables WAL mode and foreign keys once per process,
// mirroring the teacher's pkg/db.init() registration pattern.
func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				pragmas := []string{
					"PRAGMA journal_mode = WAL",
					"PRAGMA busy_timeout = 5000",
					"PRAGMA foreign_keys = ON",
					"PRAGMA synchronous = NORMAL",
				}
				for _, p := range pragmas {
					if _, err := conn.Exec(p, nil); err != nil {
						return fmt.Errorf("pragma %q: %w", p, err)
					}
				}
				return nil
			},
		})
	})
}

// Store is the relational system of record. A single process holds one
// exclusive writer during indexing; any number of readers may use Store
// concurrently during search (spec.md §4.2 concurrency discipline).
type Store struct {
	db     *sqlx.DB
	path   string
	mu     sync.RWMutex // serializes writers; readers use the pool directly
	logger *xlog.Logger
}

// Open creates the schema (if createIfMissing and the file does not yet
// exist) or opens an existing store file, running any pending migrations.
func Open(ctx context.Context, path string, createIfMissing bool, logger *xlog.Logger) (*Store, error) {
	if logger == nil {
		logger = xlog.For("store")
	}
	registerDriver()

	if !createIfMissing {
		if _, err := os.Stat(path); err != nil {
			return nil, ioError(errors.Wrapf(err, "store file %s does not exist", path))
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ioError(errors.Wrap(err, "failed to create store directory"))
		}
	}

	sqlDB, err := sql.Open(driverName, path)
	if err != nil {
		return nil, ioError(errors.Wrap(err, "failed to open sqlite database"))
	}
	sqlDB.SetMaxOpenConns(1) // single writer; sqlite3 serializes anyway
	sqlDB.SetMaxIdleConns(1)

	if err := runMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	db := sqlx.NewDb(sqlDB, "sqlite3")
	s := &Store{db: db, path: path, logger: logger}
	logger.Info("store opened", "path", path)
	return s, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embeddedMigrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return migrationError(0, 0, err)
	}

	before, _ := goose.GetDBVersion(db)
	if err := goose.Up(db, "migrations"); err != nil {
		return migrationError(int(before), int(before), err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sqlx.DB for components (keyword index
// backfill, vector index builder) that need direct read access without
// going through Store's higher-level methods.
func (s *Store) DB() *sqlx.DB { return s.db }

// TruncateAll logically erases all indexed data atomically, within a
// single transaction, across every table (spec.md §4.2).
func (s *Store) TruncateAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ioError(err)
	}
	defer func() { _ = tx.Rollback() }()

	tables := []string{"tweets", "likes", "direct_messages", "grok_messages", "fulltext", "embeddings"}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return corruptionError(errors.Wrapf(err, "truncating %s", t))
		}
	}
	if err := tx.Commit(); err != nil {
		return ioError(err)
	}
	s.logger.Info("truncated all substrates")
	return nil
}
