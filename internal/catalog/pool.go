package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/panoptikon-app/panoptikon/internal/perror"
)

const (
	minReaderConns     = 2
	maxReaderConns     = 8
	readerIdleTimeout  = 60 * time.Second
	busyTimeoutMillis  = 5000
	journalSizeLimit   = 67108864
	sqliteCacheSizeKiB = -20000 // negative: KiB of page cache, per-connection
)

// Pool holds the two *sql.DB handles Panoptikon shares over one SQLite
// file: a sole-writer handle (SetMaxOpenConns(1)) and a bounded reader
// pool, giving a many-readers/one-writer contract.
type Pool struct {
	writer *sql.DB
	reader *sql.DB
	path   string
	logger *slog.Logger
}

// Open creates (or attaches to) the SQLite database at path, applying
// WAL mode and the per-connection pragma set (busy timeout, cache size,
// auto vacuum).
func Open(ctx context.Context, path string, readers int, logger *slog.Logger) (*Pool, error) {
	if readers < minReaderConns {
		readers = minReaderConns
	}

	if readers > maxReaderConns {
		readers = maxReaderConns
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)"+
			"&_pragma=journal_size_limit(%d)&_pragma=cache_size(%d)"+
			"&_pragma=auto_vacuum(INCREMENTAL)",
		path, busyTimeoutMillis, journalSizeLimit, sqliteCacheSizeKiB,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, perror.New(perror.CategoryCatalogFatal, "catalog.Open", "", "opening writer handle", err)
	}

	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()

		return nil, perror.New(perror.CategoryCatalogFatal, "catalog.Open", "", "opening reader pool", err)
	}

	reader.SetMaxOpenConns(readers)
	reader.SetConnMaxIdleTime(readerIdleTimeout)

	if err := writer.PingContext(ctx); err != nil {
		writer.Close()
		reader.Close()

		return nil, perror.New(perror.CategoryCatalogFatal, "catalog.Open", "", "pinging writer handle", err)
	}

	p := &Pool{writer: writer, reader: reader, path: path, logger: logger}

	logger.Info("catalog pool opened", "path", path, "readers", readers)

	return p, nil
}

// Writer returns the sole-writer handle. Callers must not hold it across
// long operations — every caller here already scopes transactions tightly.
func (p *Pool) Writer() *sql.DB { return p.writer }

// Reader returns the bounded reader-pool handle.
func (p *Pool) Reader() *sql.DB { return p.reader }

// Path returns the database file path the pool was opened against.
func (p *Pool) Path() string { return p.path }

// HealthCheck runs PRAGMA integrity_check once, on one reader-pool
// connection, modeled on the Syncthing folderdb_open.go pragma-tuning
// reference. It runs on demand only (doctor and status call it); it is not
// run per connection or when a connection returns to the pool.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var result string

	if err := p.reader.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return perror.New(perror.CategoryCatalogDegraded, "catalog.HealthCheck", "", "integrity_check query failed", err)
	}

	if result != "ok" {
		return perror.New(perror.CategoryCatalogDegraded, "catalog.HealthCheck", "", "integrity_check reported: "+result, nil)
	}

	return nil
}

// Close closes both handles.
func (p *Pool) Close() error {
	err1 := p.writer.Close()
	err2 := p.reader.Close()

	if err1 != nil {
		return err1
	}

	return err2
}
