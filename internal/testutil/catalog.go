// Package testutil provides the shared test environment every package's
// _test.go files build a catalog fixture against, replacing what each of
// internal/indexer, internal/query, and internal/windows used to
// duplicate locally as a private testStore helper. It bootstraps a
// migrated SQLite catalog in a temp directory.
package testutil

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/pathfs"
)

// catalogReaders is the reader-pool size used by every test fixture. Kept
// small and fixed since test catalogs never see concurrent load.
const catalogReaders = 4

// OpenCatalog creates a freshly migrated catalog database in a temp
// directory and returns its Store and an empty SuffixIndex, the fixture
// every indexer/query/windows test starts from.
func OpenCatalog(t *testing.T) (*catalog.Store, *catalog.SuffixIndex) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "panoptikon.db")

	pool, err := catalog.Open(context.Background(), path, catalogReaders, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, catalog.Migrate(context.Background(), pool.Writer(), path, slog.Default()))

	return catalog.NewStore(pool), catalog.NewSuffixIndex()
}

// SeedFile upserts one FileRecord into store and its suffix index entry
// into suffix (if non-nil), the same two-step write the indexer's Writer
// performs per batch, and returns the row as persisted (with its assigned
// ID).
func SeedFile(t *testing.T, store *catalog.Store, suffix *catalog.SuffixIndex, rec catalog.FileRecord) catalog.FileRecord {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, store.UpsertBatch(ctx, []catalog.FileRecord{rec}))

	got, err := store.GetByPath(ctx, rec.Path)
	require.NoError(t, err)
	require.NotNil(t, got)

	if suffix != nil {
		suffix.Upsert(got.ID, pathfs.Normalize(got.Name))
	}

	return *got
}
