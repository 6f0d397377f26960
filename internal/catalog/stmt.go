package catalog

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultStmtCacheSize = 128

// slowQueryThreshold is the query-latency threshold above which a query is
// logged with its SQL and bind values.
const slowQueryThreshold = 10 * time.Millisecond

// StmtRegistry is a centralized, LRU-evicted cache of prepared statements
// over one *sql.DB. The query engine repeats a small set of parameterized
// statements often enough that preparing per call would dominate short
// queries.
type StmtRegistry struct {
	db     *sql.DB
	cache  *lru.Cache[string, *sql.Stmt]
	logger *slog.Logger
}

// NewStmtRegistry creates a registry backed by db, evicting the
// least-recently-used prepared statement once size is exceeded.
func NewStmtRegistry(db *sql.DB, size int, logger *slog.Logger) (*StmtRegistry, error) {
	if size <= 0 {
		size = defaultStmtCacheSize
	}

	cache, err := lru.NewWithEvict[string, *sql.Stmt](size, func(_ string, stmt *sql.Stmt) {
		stmt.Close()
	})
	if err != nil {
		return nil, err
	}

	return &StmtRegistry{db: db, cache: cache, logger: logger}, nil
}

// Prepare returns a cached *sql.Stmt for query, preparing and caching it on
// first use.
func (r *StmtRegistry) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := r.cache.Get(query); ok {
		return stmt, nil
	}

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	r.cache.Add(query, stmt)

	return stmt, nil
}

// Query runs query through the registry's cache, binding args via the
// standard database/sql positional-parameter mechanism (never string
// concatenation, so injection is structurally impossible), and logs a
// slow-query warning with the query text and bind values when execution
// exceeds slowQueryThreshold.
func (r *StmtRegistry) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, err := r.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	rows, err := stmt.QueryContext(ctx, args...)

	if elapsed := time.Since(start); elapsed > slowQueryThreshold && r.logger != nil {
		r.logger.Warn("slow query", "sql", query, "args", args, "elapsed", elapsed)
	}

	return rows, err
}

// Close releases every cached statement (Purge triggers the eviction
// callback registered in NewStmtRegistry for each entry).
func (r *StmtRegistry) Close() {
	r.cache.Purge()
}
