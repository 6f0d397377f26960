package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/perror"
)

const defaultPageCacheSize = 32

// defaultQueryTimeout bounds how long a single Total/GetPage call may run
// before it is canceled, applied only when the caller's context carries
// no deadline of its own.
const defaultQueryTimeout = 500 * time.Millisecond

// SortField is one of the columns a ResultSet may order by.
type SortField string

const (
	SortByName       SortField = "name"
	SortByExtension  SortField = "extension"
	SortBySize       SortField = "size"
	SortByFolderSize SortField = "folder_size"
	SortByModified   SortField = "modified_at"
	SortByCreated    SortField = "created_at"
)

// SortKey is one level of a multi-key sort; Descending reverses that
// level only.
type SortKey struct {
	Field      SortField
	Descending bool
}

// defaultSort is applied when the caller passes no sort keys:
// directories and files interleaved by name.
var defaultSort = []SortKey{{Field: SortByName}}

// ResultSet binds a compiled Plan to one reader-pool snapshot (a held
// SQLite read transaction, invariant: the row set a ResultSet reports
// never changes mid-browse even if the indexer commits concurrently) and
// pages through it with O(pages) memory via a small LRU of
// already-fetched pages instead of loading every row.
type ResultSet struct {
	// ID correlates this browse session across Total/GetPage calls and
	// into any perror.Error they raise, the query-engine counterpart of
	// the indexer's IndexRun id.
	ID string

	snapshot *catalog.Snapshot
	plan     Plan
	orderBy  string

	total     int64
	haveTotal bool

	pages *lru.Cache[pageKey, []catalog.FileRecord]
}

type pageKey struct {
	offset int
	limit  int
}

// NewResultSet opens a snapshot against store and binds it to plan and
// sort. Returns a structured error (via perror, surfaced through
// BeginSnapshot) if the snapshot transaction can't be started.
func NewResultSet(ctx context.Context, store *catalog.Store, plan Plan, sort []SortKey) (*ResultSet, error) {
	snapshot, err := store.BeginSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if len(sort) == 0 {
		sort = defaultSort
	}

	pages, err := lru.New[pageKey, []catalog.FileRecord](defaultPageCacheSize)
	if err != nil {
		snapshot.Close()
		return nil, err
	}

	return &ResultSet{
		ID:       uuid.New().String(),
		snapshot: snapshot,
		plan:     plan,
		orderBy:  buildOrderBy(sort),
		pages:    pages,
	}, nil
}

// buildOrderBy renders sort keys into a trusted ORDER BY clause (SortField
// values are a closed, compile-time-known set, never raw user text), with
// a final "id" tie-break so paging is stable across repeated calls.
func buildOrderBy(sort []SortKey) string {
	parts := make([]string, 0, len(sort)+1)

	for _, key := range sort {
		dir := "ASC"
		if key.Descending {
			dir = "DESC"
		}

		parts = append(parts, fmt.Sprintf("%s %s", key.Field, dir))
	}

	parts = append(parts, "id ASC")

	return strings.Join(parts, ", ")
}

// Total returns the number of rows the bound plan matches, computed once
// and cached for the ResultSet's lifetime (the snapshot transaction keeps
// this value valid regardless of concurrent writes elsewhere). On timeout,
// it returns the last count it had (0 if none yet computed) alongside the
// timeout error, so a caller can still render a partial total rather than
// blocking indefinitely on a pathological query.
func (rs *ResultSet) Total(ctx context.Context) (int64, error) {
	if rs.haveTotal {
		return rs.total, nil
	}

	qctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	total, err := rs.snapshot.CountFiles(qctx, rs.plan.Where, rs.plan.Args)
	if err != nil {
		return rs.total, classifyQueryErr(qctx, rs.ID, err)
	}

	rs.total = total
	rs.haveTotal = true

	return total, nil
}

// GetPage returns rows [offset, offset+limit) under the bound sort order,
// serving from the page cache on repeat requests (e.g. scrolling back up
// a window that already rendered that page).
func (rs *ResultSet) GetPage(ctx context.Context, offset, limit int) ([]catalog.FileRecord, error) {
	key := pageKey{offset: offset, limit: limit}

	if page, ok := rs.pages.Get(key); ok {
		return page, nil
	}

	qctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	page, err := rs.snapshot.QueryFiles(qctx, rs.plan.Where, rs.plan.Args, rs.orderBy, limit, offset)
	if err != nil {
		return nil, classifyQueryErr(qctx, rs.ID, err)
	}

	rs.pages.Add(key, page)

	return page, nil
}

// withQueryTimeout applies defaultQueryTimeout unless ctx already carries
// a deadline, leaving an explicit caller-supplied deadline untouched.
func withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// classifyQueryErr maps a context timeout/cancellation into the query
// engine's own error categories so callers (and exit-code mapping in the
// CLI) can distinguish "query took too long" from "caller gave up" from an
// ordinary catalog error. opID is the owning ResultSet's id, so a repeated
// query's errors can be correlated across Total/GetPage calls.
func classifyQueryErr(ctx context.Context, opID string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return perror.New(perror.CategoryQueryTimeout, "query.resultset", opID, "query exceeded its time budget", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return perror.New(perror.CategoryQueryCanceled, "query.resultset", opID, "query canceled", err)
	default:
		return err
	}
}

// Close releases the snapshot's underlying reader-pool connection.
func (rs *ResultSet) Close() error {
	return rs.snapshot.Close()
}
