package query

import (
	"testing"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/testutil"
)

// testStore opens a fresh migrated catalog in a temp file, delegating to
// the shared fixture every package's tests build on.
func testStore(t *testing.T) (*catalog.Store, *catalog.SuffixIndex) {
	t.Helper()

	return testutil.OpenCatalog(t)
}

// seedFile upserts one FileRecord plus its suffix-index entry, the same
// two-step write the indexer's Writer performs per batch.
func seedFile(t *testing.T, store *catalog.Store, suffix *catalog.SuffixIndex, rec catalog.FileRecord) catalog.FileRecord {
	t.Helper()

	return testutil.SeedFile(t, store, suffix, rec)
}
