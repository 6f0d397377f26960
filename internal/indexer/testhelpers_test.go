package indexer

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
